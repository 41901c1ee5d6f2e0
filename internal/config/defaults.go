package config

import "path/filepath"

const (
	defaultTimeout      = "60s"
	defaultDebounce     = "2s"
	defaultMetricsAddr  = ":9090"
	defaultMetricsPath  = "/metrics"
	defaultHistoryPath  = ".staticboot/history.db"
	defaultNATSURL      = "nats://127.0.0.1:4222"
	defaultNotifySubj   = "staticboot"
	defaultNotifyStream = "STATICBOOT"
	defaultRegion       = "us-east-1"
)

// applyDefaults fills unset fields. It runs after normalization so canonical
// values drive defaults.
func applyDefaults(c *Config) {
	if c.Render.Engine == "" {
		c.Render.Engine = EngineHTTP
	}
	if c.Render.Timeout == "" {
		c.Render.Timeout = defaultTimeout
	}
	if c.Output.Directory != "" {
		c.Output.Directory = filepath.Clean(c.Output.Directory)
	}
	if c.Output.ReportDir == "" {
		c.Output.ReportDir = c.Output.Directory
	} else {
		c.Output.ReportDir = filepath.Clean(c.Output.ReportDir)
	}
	if c.Input != "" {
		c.Input = filepath.Clean(c.Input)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = LogLevelInfo
	}
	if c.Logging.Format == "" {
		c.Logging.Format = LogFormatText
	}

	if c.Metrics.Addr == "" {
		c.Metrics.Addr = defaultMetricsAddr
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = defaultMetricsPath
	}
	if c.History.Path == "" {
		c.History.Path = defaultHistoryPath
	}

	if c.Notify.URL == "" {
		c.Notify.URL = defaultNATSURL
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = defaultNotifySubj
	}
	if c.Notify.Stream == "" {
		c.Notify.Stream = defaultNotifyStream
	}

	if c.Publish.Region == "" {
		c.Publish.Region = defaultRegion
	}
	if c.Publish.RetryBackoff == "" {
		c.Publish.RetryBackoff = RetryBackoffLinear
	}

	if c.Daemon.Debounce == "" {
		c.Daemon.Debounce = defaultDebounce
	}
}
