package metrics

import "time"

// ResultLabel enumerates per-page result categories for counters.
type ResultLabel string

const (
	ResultWritten         ResultLabel = "written"
	ResultRenderFailed    ResultLabel = "render_failed"
	ResultDirectoryFailed ResultLabel = "directory_failed"
	ResultWriteFailed     ResultLabel = "write_failed"
)

// BatchOutcomeLabel enumerates final batch states.
type BatchOutcomeLabel string

const (
	BatchSuccess  BatchOutcomeLabel = "success"
	BatchPartial  BatchOutcomeLabel = "partial"
	BatchFailed   BatchOutcomeLabel = "failed"
	BatchCanceled BatchOutcomeLabel = "canceled"
)

// Recorder defines observability hooks for batches and pages. Implementations
// must be safe for concurrent use; pages report from worker goroutines.
type Recorder interface {
	ObservePageDuration(result ResultLabel, d time.Duration)
	IncPageResult(result ResultLabel)
	ObserveBatchDuration(d time.Duration)
	IncBatchOutcome(outcome BatchOutcomeLabel)
	AddInFlight(delta int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePageDuration(ResultLabel, time.Duration) {}
func (NoopRecorder) IncPageResult(ResultLabel)                      {}
func (NoopRecorder) ObserveBatchDuration(time.Duration)             {}
func (NoopRecorder) IncBatchOutcome(BatchOutcomeLabel)              {}
func (NoopRecorder) AddInFlight(int)                                {}
