package commands

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/staticboot/internal/config"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"staticboot.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Render every route once and write the static pages"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild whenever the input directory changes"`
	Daemon  DaemonCmd  `cmd:"" help:"Run continuously: scheduled and on-change rebuilds with an admin server"`
	History HistoryCmd `cmd:"" help:"Show recent batches from the history database"`
	Init    InitCmd    `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// SourceFlags override the configuration file for commands that generate pages.
type SourceFlags struct {
	Input       string        `short:"i" help:"Input artifact directory (overrides input)"`
	Output      string        `short:"o" help:"Output directory (overrides output.dir)"`
	Routes      []string      `short:"r" name:"route" help:"Route to generate; repeat for more (overrides routes)"`
	Engine      string        `short:"e" help:"Rendering engine: http, browser or markdown (overrides render.engine)"`
	BaseURL     string        `name:"base-url" help:"Application URL for the http engine (overrides render.base_url)"`
	Concurrency int           `help:"Maximum routes rendered at once; 0 keeps the configured value"`
	Timeout     time.Duration `help:"Per-route timeout; 0 keeps the configured value"`
	Strict      bool          `help:"Report engine failures instead of falling back to the application shell"`
}

// LoadConfig reads path when it exists, applies the flag overrides and
// finalizes the result. Without a configuration file the flags alone must
// describe the batch.
func LoadConfig(path string, flags SourceFlags) (*config.Config, error) {
	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("No configuration file, using flags only", "path", path)
		cfg = config.Defaults()
	} else {
		if cfg, err = config.Read(path); err != nil {
			return nil, err
		}
	}

	if flags.Input != "" {
		cfg.Input = flags.Input
	}
	if flags.Output != "" {
		cfg.Output.Directory = flags.Output
		cfg.Output.ReportDir = ""
	}
	if len(flags.Routes) > 0 {
		cfg.Routes = flags.Routes
	}
	if flags.Engine != "" {
		cfg.Render.Engine = config.RenderEngine(flags.Engine)
	}
	if flags.BaseURL != "" {
		cfg.Render.BaseURL = flags.BaseURL
	}
	if flags.Concurrency > 0 {
		cfg.Render.Concurrency = flags.Concurrency
	}
	if flags.Timeout > 0 {
		cfg.Render.Timeout = flags.Timeout.String()
	}
	if flags.Strict {
		resilient := false
		cfg.Render.Resilient = &resilient
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the logger described by cfg. verbose forces debug level.
func NewLogger(cfg config.LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == config.LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
