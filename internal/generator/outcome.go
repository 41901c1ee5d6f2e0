package generator

import (
	"fmt"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/metrics"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

// Kind identifies the step of the per-route pipeline that failed.
type Kind string

const (
	KindRender    Kind = "render"
	KindDirectory Kind = "directory"
	KindWrite     Kind = "write"
)

// resultLabel maps a failure kind to its metrics label.
func (k Kind) resultLabel() metrics.ResultLabel {
	switch k {
	case KindRender:
		return metrics.ResultRenderFailed
	case KindDirectory:
		return metrics.ResultDirectoryFailed
	default:
		return metrics.ResultWriteFailed
	}
}

// PageError is the failure of a single route.
type PageError struct {
	Route routes.Route
	Path  string
	Kind  Kind
	Err   error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.Route, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Category classifies the failure: render failures belong to the engine,
// directory and write failures to the filesystem.
func (e *PageError) Category() ferrors.ErrorCategory {
	if e.Kind == KindRender {
		return ferrors.CategoryRender
	}
	return ferrors.CategoryFileSystem
}

// PageResult is the result of one route. Err is nil when the page was written.
type PageResult struct {
	Route    routes.Route
	Path     string
	Bytes    int
	Duration time.Duration
	Err      *PageError
}

// OK reports whether the page was written.
func (p PageResult) OK() bool { return p.Err == nil }

// BatchError lists every failed route of a batch.
type BatchError struct {
	BatchID  string
	Total    int
	Failures []*PageError
}

func (e *BatchError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%d of %d routes failed: %s", len(e.Failures), e.Total, strings.Join(parts, "; "))
}

// Unwrap exposes the individual page errors to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}

// Outcome aggregates a batch. Pages holds one entry per input route, in
// input order.
type Outcome struct {
	BatchID    string
	OutputRoot string
	Start      time.Time
	End        time.Time
	Pages      []PageResult
	Canceled   bool
}

// Duration is the wall time of the batch.
func (o *Outcome) Duration() time.Duration { return o.End.Sub(o.Start) }

// Failures returns the errors of the failed pages in input order.
func (o *Outcome) Failures() []*PageError {
	var out []*PageError
	for _, p := range o.Pages {
		if p.Err != nil {
			out = append(out, p.Err)
		}
	}
	return out
}

// Written returns the pages that were written in input order.
func (o *Outcome) Written() []PageResult {
	var out []PageResult
	for _, p := range o.Pages {
		if p.OK() {
			out = append(out, p)
		}
	}
	return out
}

// Err returns nil when every route was written. Otherwise it returns a
// classified error wrapping a *BatchError; the category is filesystem when
// any page failed on disk and render otherwise.
func (o *Outcome) Err() error {
	failures := o.Failures()
	if len(failures) == 0 {
		return nil
	}
	batchErr := &BatchError{BatchID: o.BatchID, Total: len(o.Pages), Failures: failures}
	category := ferrors.CategoryRender
	for _, f := range failures {
		if f.Category() == ferrors.CategoryFileSystem {
			category = ferrors.CategoryFileSystem
			break
		}
	}
	return ferrors.WrapError(batchErr, category, "static page generation incomplete").
		WithContext("batch_id", o.BatchID).
		WithContext("failed", len(failures)).
		WithContext("routes", len(o.Pages)).
		Build()
}

// Label derives the batch outcome label used by metrics and reports.
func (o *Outcome) Label() metrics.BatchOutcomeLabel {
	failed := len(o.Failures())
	switch {
	case o.Canceled:
		return metrics.BatchCanceled
	case failed == 0:
		return metrics.BatchSuccess
	case failed == len(o.Pages):
		return metrics.BatchFailed
	default:
		return metrics.BatchPartial
	}
}

// Summary returns a human-readable single-line summary.
func (o *Outcome) Summary() string {
	failed := len(o.Failures())
	return fmt.Sprintf("batch=%s routes=%d written=%d failed=%d duration=%s outcome=%s",
		o.BatchID, len(o.Pages), len(o.Pages)-failed, failed,
		o.Duration().Truncate(time.Millisecond), o.Label())
}
