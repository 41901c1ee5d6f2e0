// Package config loads and validates staticboot.yaml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// Version is the only configuration version understood by this release.
const Version = "1.0"

// DefaultFile is the configuration file looked up when none is given.
const DefaultFile = "staticboot.yaml"

// Config is the complete staticboot configuration.
type Config struct {
	Version      string        `yaml:"version"`
	Input        string        `yaml:"input"`
	Output       OutputConfig  `yaml:"output"`
	Routes       []string      `yaml:"routes"`
	AutoDiscover bool          `yaml:"auto_discover,omitempty"`
	Render       RenderConfig  `yaml:"render"`
	Logging      LoggingConfig `yaml:"logging"`
	Metrics      MetricsConfig `yaml:"metrics"`
	History      HistoryConfig `yaml:"history"`
	Notify       NotifyConfig  `yaml:"notify"`
	Publish      PublishConfig `yaml:"publish"`
	Daemon       DaemonConfig  `yaml:"daemon"`
}

// OutputConfig locates the generated site and its report.
type OutputConfig struct {
	Directory string `yaml:"dir"`
	ReportDir string `yaml:"report_dir,omitempty"` // defaults to Directory
}

// RenderConfig selects and tunes the rendering engine.
type RenderConfig struct {
	Engine      RenderEngine  `yaml:"engine"`
	Resilient   *bool         `yaml:"resilient,omitempty"` // default true
	BaseURL     string        `yaml:"base_url,omitempty"`
	Timeout     string        `yaml:"timeout,omitempty"`     // per route, "0" disables
	Concurrency int           `yaml:"concurrency,omitempty"` // 0 = one task per route
	Browser     BrowserConfig `yaml:"browser,omitempty"`
	CacheSize   int           `yaml:"cache_size,omitempty"`
	MountID     string        `yaml:"mount_id,omitempty"`
}

// BrowserConfig tunes the headless browser engine.
type BrowserConfig struct {
	Bin        string `yaml:"bin,omitempty"`
	Headless   *bool  `yaml:"headless,omitempty"` // default true
	WaitStable string `yaml:"wait_stable,omitempty"`
}

type LoggingConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr,omitempty"` // admin server address in daemon mode
	Path    string `yaml:"path,omitempty"`
}

// HistoryConfig controls the SQLite batch event log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NotifyConfig controls NATS JetStream batch notifications.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"` // subject prefix
	Stream  string `yaml:"stream,omitempty"`
}

// PublishConfig controls mirroring the generated pages to S3-compatible storage.
type PublishConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	Bucket    string `yaml:"bucket,omitempty"`
	Prefix    string `yaml:"prefix,omitempty"`
	AccessKey string `yaml:"access_key,omitempty"`
	SecretKey string `yaml:"secret_key,omitempty"`
	Region    string `yaml:"region,omitempty"`
	UseSSL    bool   `yaml:"use_ssl,omitempty"`

	MaxRetries   int              `yaml:"max_retries,omitempty"`   // per page, after the first attempt
	RetryBackoff RetryBackoffMode `yaml:"retry_backoff,omitempty"` // fixed, linear or exponential
}

// DaemonConfig controls long-running mode.
type DaemonConfig struct {
	Schedule string `yaml:"schedule,omitempty"` // regeneration interval, e.g. "15m"
	Watch    bool   `yaml:"watch,omitempty"`
	Debounce string `yaml:"debounce,omitempty"`
}

// IsResilient reports whether engine failures fall back to the bundle shell.
func (r RenderConfig) IsResilient() bool { return r.Resilient == nil || *r.Resilient }

// TimeoutDuration returns the parsed per-route timeout. Call after Finalize.
func (r RenderConfig) TimeoutDuration() time.Duration { return mustDuration(r.Timeout) }

// IsHeadless reports whether the browser runs without a window.
func (b BrowserConfig) IsHeadless() bool { return b.Headless == nil || *b.Headless }

// WaitStableDuration returns the parsed DOM stability window. Call after Finalize.
func (b BrowserConfig) WaitStableDuration() time.Duration { return mustDuration(b.WaitStable) }

// ScheduleInterval returns the parsed regeneration interval; zero disables it.
func (d DaemonConfig) ScheduleInterval() time.Duration { return mustDuration(d.Schedule) }

// DebounceDuration returns the parsed watcher quiet period.
func (d DaemonConfig) DebounceDuration() time.Duration { return mustDuration(d.Debounce) }

// mustDuration parses a duration that validation already accepted.
func mustDuration(s string) time.Duration {
	if s == "" {
		return 0
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// Defaults returns a configuration with every default applied and no input,
// output or routes set. It is the base for flag-only invocations.
func Defaults() *Config {
	cfg := &Config{Version: Version}
	applyDefaults(cfg)
	return cfg
}

// Load reads path and finalizes the result.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read parses path after expanding ${VAR} references, without applying
// defaults or validating. .env and .env.local are loaded first without
// overriding the process environment.
func Read(path string) (*Config, error) {
	loadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").
				WithContext("path", path).
				Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "read configuration file").
			WithContext("path", path).
			Build()
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "parse configuration file").
			WithContext("path", path).
			Build()
	}
	if cfg.Version != Version {
		return nil, ferrors.ConfigError(fmt.Sprintf("unsupported configuration version %q (expected %s)", cfg.Version, Version)).
			WithContext("path", path).
			Build()
	}
	return &cfg, nil
}

// Finalize normalizes enumerations, applies defaults and validates. It is
// safe to call more than once.
func (c *Config) Finalize() error {
	for _, w := range normalize(c) {
		slog.Warn("Configuration normalized", "detail", w)
	}
	applyDefaults(c)
	return validate(c)
}

// Init writes an example configuration to path.
func Init(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").
			WithContext("path", path).
			Build()
	}

	resilient := true
	example := Config{
		Version: Version,
		Input:   "./dist",
		Output:  OutputConfig{Directory: "./static"},
		Routes:  []string{"/", "/about", "/users/1/"},
		Render: RenderConfig{
			Engine:    EngineHTTP,
			Resilient: &resilient,
			BaseURL:   "${STATICBOOT_SSR_URL}",
			Timeout:   "60s",
		},
		Logging: LoggingConfig{Level: LogLevelInfo, Format: LogFormatText},
		Metrics: MetricsConfig{Enabled: true, Addr: ":9090", Path: "/metrics"},
		History: HistoryConfig{Enabled: true, Path: ".staticboot/history.db"},
		Notify:  NotifyConfig{URL: "nats://127.0.0.1:4222", Subject: "staticboot"},
		Publish: PublishConfig{
			Endpoint:   "localhost:9000",
			Bucket:     "site",
			AccessKey:  "${STATICBOOT_S3_ACCESS_KEY}",
			SecretKey:  "${STATICBOOT_S3_SECRET_KEY}",
			MaxRetries: 2,
		},
		Daemon: DaemonConfig{Watch: true, Debounce: "2s"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "write configuration file").
			WithContext("path", path).
			Build()
	}
	return nil
}
