package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/staticboot/internal/config"
	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/generator"
)

const shell = `<!doctype html><html><head><title>app</title></head><body><div id="app"></div></body></html>`

// markdownBundle writes a bundle with an application shell and two pages.
func markdownBundle(t *testing.T) string {
	t.Helper()
	dist := filepath.Join(t.TempDir(), "dist")
	files := map[string]string{
		"index.html":       shell,
		"content/index.md": "# Home",
		"content/about.md": "# About us",
	}
	for name, body := range files {
		p := filepath.Join(dist, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	}
	return dist
}

func TestCLI_Parse(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{"version": "test"})
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"build", "-i", "dist", "-o", "out", "-r", "/", "-r", "/about", "--timeout", "5s", "--strict"})
	require.NoError(t, err)
	assert.Equal(t, "build", ctx.Command())
	assert.Equal(t, "staticboot.yaml", cli.Config)
	assert.Equal(t, []string{"/", "/about"}, cli.Build.Routes)
	assert.Equal(t, 5*time.Second, cli.Build.Timeout)
	assert.True(t, cli.Build.Strict)

	ctx, err = parser.Parse([]string{"history", "-n", "3", "--json"})
	require.NoError(t, err)
	assert.Equal(t, "history", ctx.Command())
	assert.Equal(t, 3, cli.History.Limit)
}

func TestLoadConfig_FlagsOnly(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "staticboot.yaml")
	cfg, err := LoadConfig(missing, SourceFlags{
		Input:  "dist",
		Output: "out",
		Routes: []string{"/", " /about "},
		Engine: "Markdown",
	})
	require.NoError(t, err)
	assert.Equal(t, config.EngineMarkdown, cfg.Render.Engine)
	assert.Equal(t, "out", cfg.Output.ReportDir)
	assert.Equal(t, 60*time.Second, cfg.Render.TimeoutDuration())
	assert.True(t, cfg.Render.IsResilient())
}

func TestLoadConfig_FlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "staticboot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: "1.0"
input: dist
output:
  dir: site
render:
  engine: http
  base_url: http://localhost:3000
  concurrency: 2
`), 0o600))

	cfg, err := LoadConfig(path, SourceFlags{
		Routes:      []string{"/"},
		Concurrency: 8,
		Timeout:     3 * time.Second,
		Strict:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"/"}, cfg.Routes)
	assert.Equal(t, 8, cfg.Render.Concurrency)
	assert.Equal(t, 3*time.Second, cfg.Render.TimeoutDuration())
	assert.False(t, cfg.Render.IsResilient())
	assert.Equal(t, "site", cfg.Output.Directory)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "none.yaml"), SourceFlags{Input: "dist"})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation))
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(config.LoggingConfig{Level: config.LogLevelWarn, Format: config.LogFormatJSON}, false, &buf)
	logger.Info("hidden")
	logger.Warn("shown", "route", "/about")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "shown", line["msg"])
	assert.Equal(t, "/about", line["route"])

	buf.Reset()
	NewLogger(config.LoggingConfig{Level: config.LogLevelError}, true, &buf).Debug("verbose wins")
	assert.Contains(t, buf.String(), "verbose wins")
}

func TestRunBuild_MarkdownWithHistory(t *testing.T) {
	dist := markdownBundle(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "site")
	db := filepath.Join(dir, "state", "history.db")
	cfgPath := filepath.Join(dir, "staticboot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`version: "1.0"
input: %s
output:
  dir: %s
routes: ["/", "/about", "/missing"]
render:
  engine: markdown
  resilient: false
history:
  enabled: true
  path: %s
`, dist, out, db)), 0o600))

	var stdout bytes.Buffer
	err := RunBuild(t.Context(), cfgPath, SourceFlags{}, false, &stdout)
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryRender))
	assert.Contains(t, stdout.String(), "written=2 failed=1")
	assert.Contains(t, stdout.String(), "/missing")

	home, err := os.ReadFile(filepath.Join(out, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(home), "Home")
	about, err := os.ReadFile(filepath.Join(out, "about", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(about), "About us")
	assert.FileExists(t, filepath.Join(out, generator.ReportJSON))

	var table bytes.Buffer
	require.NoError(t, RunHistory(t.Context(), db, 10, false, &table))
	assert.Contains(t, table.String(), "BATCH")
	assert.Contains(t, table.String(), "partial")

	var raw bytes.Buffer
	require.NoError(t, RunHistory(t.Context(), db, 1, true, &raw))
	var batches []map[string]any
	require.NoError(t, json.Unmarshal(raw.Bytes(), &batches))
	require.Len(t, batches, 1)
	assert.InDelta(t, 2, batches[0]["written"], 0)
}

func TestRunBuild_AutoDiscover(t *testing.T) {
	dist := markdownBundle(t)
	out := filepath.Join(t.TempDir(), "site")
	cfgPath := filepath.Join(t.TempDir(), "staticboot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`version: "1.0"
input: %s
output: {dir: %s}
auto_discover: true
render: {engine: markdown}
`, dist, out)), 0o600))

	var stdout bytes.Buffer
	require.NoError(t, RunBuild(t.Context(), cfgPath, SourceFlags{}, false, &stdout))
	assert.Contains(t, stdout.String(), "written=2 failed=0")
	assert.FileExists(t, filepath.Join(out, "about", "index.html"))
}

func TestNewPipeline_SetupFailures(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	tests := []struct {
		name     string
		mutate   func(*config.Config)
		category ferrors.ErrorCategory
	}{
		{
			name: "history database cannot be opened",
			mutate: func(c *config.Config) {
				c.History.Enabled = true
				c.History.Path = filepath.Join(blocker, "state", "history.db")
			},
			category: ferrors.CategoryEventStore,
		},
		{
			name:     "input bundle is missing",
			mutate:   func(c *config.Config) { c.Input = filepath.Join(dir, "gone") },
			category: ferrors.CategoryConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.Input = markdownBundle(t)
			cfg.Output.Directory = filepath.Join(t.TempDir(), "site")
			cfg.Routes = []string{"/"}
			cfg.Render.Engine = config.EngineMarkdown
			require.NoError(t, cfg.Finalize())
			tt.mutate(cfg)

			var p *Pipeline
			var err error
			require.NotPanics(t, func() {
				p, err = NewPipeline(t.Context(), cfg, NewLogger(cfg.Logging, false, &bytes.Buffer{}))
			})
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, ferrors.HasCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestRunBuild_HistorySetupFailureIsClassified(t *testing.T) {
	dist := markdownBundle(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	cfgPath := filepath.Join(dir, "staticboot.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`version: "1.0"
input: %s
output: {dir: %s}
routes: ["/"]
render: {engine: markdown}
history: {enabled: true, path: %s}
`, dist, filepath.Join(dir, "site"), filepath.Join(blocker, "history.db"))), 0o600))

	err := RunBuild(t.Context(), cfgPath, SourceFlags{}, false, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryEventStore))
	assert.NoFileExists(t, filepath.Join(dir, "site", "index.html"))
}

func TestRunHistory_MissingDatabase(t *testing.T) {
	err := RunHistory(t.Context(), filepath.Join(t.TempDir(), "none.db"), 10, false, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
}

func TestIgnorePaths(t *testing.T) {
	cfg := config.Defaults()
	cfg.Input = "dist"
	cfg.Output.Directory = filepath.Join("dist", "static")
	cfg.Output.ReportDir = "dist"
	assert.Equal(t, []string{filepath.Join("dist", "static")}, ignorePaths(cfg))

	cfg.History.Enabled = true
	cfg.Output.Directory = "site"
	paths := ignorePaths(cfg)
	assert.Contains(t, paths, cfg.History.Path)
	assert.Contains(t, paths, "site")
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), config.DefaultFile)
	var stdout bytes.Buffer
	require.NoError(t, RunInit(path, false, &stdout))
	assert.Contains(t, stdout.String(), "Wrote "+path)
	require.Error(t, RunInit(path, false, &stdout))
	require.NoError(t, RunInit(path, true, &stdout))

	cfg, err := config.Read(path)
	require.NoError(t, err)
	assert.Equal(t, config.Version, cfg.Version)
}
