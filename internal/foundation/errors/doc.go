// Package errors provides the classified error primitives used across staticboot.
//
// A ClassifiedError carries a category, a severity and a retry hint next to the
// message and cause, so that the CLI can choose an exit code and the generator
// can tell a failed render apart from a full disk.
//
// Key features:
//   - ErrorCategory: broad classification (config, render, filesystem, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: advisory retry hint for operators and schedulers
//   - ErrorBuilder: fluent construction with context
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.RenderError("render failed").
//		WithContext("route", "/about").
//		WithCause(cause).
//		Build()
package errors
