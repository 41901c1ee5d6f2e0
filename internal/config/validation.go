package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

// validate checks the finalized configuration. All problems are reported
// together in one validation error.
func validate(c *Config) error {
	var problems []error
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Input) == "" {
		add("input: input artifact directory is required")
	}
	if strings.TrimSpace(c.Output.Directory) == "" {
		add("output.dir: output directory is required")
	} else if strings.TrimSpace(c.Input) != "" && overlapsInput(c.Input, c.Output.Directory) {
		add("output.dir: %q would overwrite the input bundle %q; use a separate directory", c.Output.Directory, c.Input)
	}

	if _, err := routes.Normalize(c.Routes); err != nil {
		add("routes: %w", err)
	}
	if len(c.Routes) == 0 && !c.AutoDiscover {
		add("routes: at least one route is required unless auto_discover is set")
	}

	if _, err := engineNormalizer.normalize(c.Render.Engine); err != nil {
		add("%w", err)
	}
	if c.Render.Engine == EngineHTTP && strings.TrimSpace(c.Render.BaseURL) == "" {
		add("render.base_url: required by the http engine")
	}
	checkDuration(add, "render.timeout", c.Render.Timeout)
	checkDuration(add, "render.browser.wait_stable", c.Render.Browser.WaitStable)
	if c.Render.Concurrency < 0 {
		add("render.concurrency: must not be negative")
	}
	if c.Render.CacheSize < 0 {
		add("render.cache_size: must not be negative")
	}

	if c.Notify.Enabled && strings.TrimSpace(c.Notify.URL) == "" {
		add("notify.nats_url: required when notify is enabled")
	}
	if c.Publish.Enabled {
		if strings.TrimSpace(c.Publish.Endpoint) == "" {
			add("publish.endpoint: required when publish is enabled")
		}
		if strings.TrimSpace(c.Publish.Bucket) == "" {
			add("publish.bucket: required when publish is enabled")
		}
		if c.Publish.MaxRetries < 0 {
			add("publish.max_retries: must not be negative")
		}
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		add("metrics.path: must start with /")
	}

	checkDuration(add, "daemon.schedule", c.Daemon.Schedule)
	checkDuration(add, "daemon.debounce", c.Daemon.Debounce)

	if len(problems) == 0 {
		return nil
	}
	return ferrors.WrapError(errors.Join(problems...), ferrors.CategoryValidation, "invalid configuration").
		Fatal().
		UserAction().
		WithContext("problems", len(problems)).
		Build()
}

func checkDuration(add func(string, ...any), field, value string) {
	if value == "" {
		return
	}
	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		add("%s: invalid duration %q", field, value)
	case d < 0:
		add("%s: must not be negative", field)
	}
}

// overlapsInput reports whether pages written below output can replace files
// of the input bundle: output is the input itself or one of its ancestors, so
// some route maps onto the bundle's index.html.
func overlapsInput(input, output string) bool {
	in, err := filepath.Abs(input)
	if err != nil {
		return false
	}
	out, err := filepath.Abs(output)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(out, in)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
