package config

import (
	"fmt"
	"sort"
	"strings"
)

// normalizer maps loosely written enumeration values to their canonical form.
type normalizer[T ~string] struct {
	name   string
	values map[string]T
}

func newNormalizer[T ~string](name string, values ...T) normalizer[T] {
	m := make(map[string]T, len(values))
	for _, v := range values {
		m[clean(string(v))] = v
	}
	return normalizer[T]{name: name, values: m}
}

func clean(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// normalize returns the canonical value, or an error listing the valid ones.
func (n normalizer[T]) normalize(raw T) (T, error) {
	if v, ok := n.values[clean(string(raw))]; ok {
		return v, nil
	}
	return raw, fmt.Errorf("invalid %s %q, valid options: %s", n.name, raw, strings.Join(n.valid(), ", "))
}

func (n normalizer[T]) valid() []string {
	keys := make([]string, 0, len(n.values))
	for k := range n.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RenderEngine names a rendering engine.
type RenderEngine string

const (
	EngineHTTP     RenderEngine = "http"
	EngineBrowser  RenderEngine = "browser"
	EngineMarkdown RenderEngine = "markdown"
)

var engineNormalizer = newNormalizer("render.engine", EngineHTTP, EngineBrowser, EngineMarkdown)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = newNormalizer("logging.level", LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = newNormalizer("logging.format", LogFormatJSON, LogFormatText)

// RetryBackoffMode selects how the delay between retries grows.
type RetryBackoffMode string

const (
	RetryBackoffFixed       RetryBackoffMode = "fixed"
	RetryBackoffLinear      RetryBackoffMode = "linear"
	RetryBackoffExponential RetryBackoffMode = "exponential"
)

var retryBackoffNormalizer = newNormalizer("publish.retry_backoff", RetryBackoffFixed, RetryBackoffLinear, RetryBackoffExponential)

// normalize canonicalizes enumerations in place. Unknown logging and retry
// values fall back to their defaults with a warning; unknown engines are left for
// validation to reject.
func normalize(c *Config) []string {
	var warnings []string
	if c.Render.Engine != "" {
		if v, err := engineNormalizer.normalize(c.Render.Engine); err == nil {
			c.Render.Engine = v
		}
	}
	if c.Logging.Level != "" {
		v, err := logLevelNormalizer.normalize(c.Logging.Level)
		if err != nil {
			warnings = append(warnings, err.Error()+"; using info")
			v = LogLevelInfo
		}
		c.Logging.Level = v
	}
	if c.Logging.Format != "" {
		v, err := logFormatNormalizer.normalize(c.Logging.Format)
		if err != nil {
			warnings = append(warnings, err.Error()+"; using text")
			v = LogFormatText
		}
		c.Logging.Format = v
	}
	if c.Publish.RetryBackoff != "" {
		v, err := retryBackoffNormalizer.normalize(c.Publish.RetryBackoff)
		if err != nil {
			warnings = append(warnings, err.Error()+"; using linear")
			v = RetryBackoffLinear
		}
		c.Publish.RetryBackoff = v
	}
	return warnings
}
