package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/staticboot/internal/generator"
	"git.home.luguber.info/inful/staticboot/internal/logfields"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectPageFailed     = "page.failed"
	SubjectBatchCompleted = "batch.completed"
)

const publishTimeout = 5 * time.Second

// PageFailedEvent is published for each failed route.
type PageFailedEvent struct {
	BatchID   string    `json:"batch_id"`
	Route     string    `json:"route"`
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchCompletedEvent is published once per batch.
type BatchCompletedEvent struct {
	BatchID    string    `json:"batch_id"`
	Outcome    string    `json:"outcome"`
	OutputRoot string    `json:"output_root"`
	Routes     int       `json:"routes"`
	Written    int       `json:"written"`
	Failed     int       `json:"failed"`
	DurationMS int64     `json:"duration_ms"`
	Summary    string    `json:"summary"`
	Timestamp  time.Time `json:"timestamp"`
}

// Notifier publishes failed pages and completed batches. Publish errors are
// logged and never affect the batch.
type Notifier struct {
	generator.NopObserver
	pub    Publisher
	prefix string
	logger *slog.Logger
}

var _ generator.Observer = (*Notifier)(nil)

// NewNotifier returns a Notifier publishing below prefix.
func NewNotifier(pub Publisher, prefix string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{pub: pub, prefix: prefix, logger: logger}
}

func (n *Notifier) PageFailed(ctx context.Context, batchID string, page generator.PageResult) {
	ev := PageFailedEvent{
		BatchID:   batchID,
		Route:     page.Route,
		Path:      page.Path,
		Timestamp: time.Now(),
	}
	if page.Err != nil {
		ev.Kind = string(page.Err.Kind)
		ev.Error = page.Err.Err.Error()
	}
	n.publish(ctx, batchID, SubjectPageFailed, ev)
}

func (n *Notifier) BatchCompleted(ctx context.Context, out *generator.Outcome) {
	failed := len(out.Failures())
	n.publish(ctx, out.BatchID, SubjectBatchCompleted, BatchCompletedEvent{
		BatchID:    out.BatchID,
		Outcome:    string(out.Label()),
		OutputRoot: out.OutputRoot,
		Routes:     len(out.Pages),
		Written:    len(out.Pages) - failed,
		Failed:     failed,
		DurationMS: out.Duration().Milliseconds(),
		Summary:    out.Summary(),
		Timestamp:  time.Now(),
	})
}

// Subject returns the full subject for suffix.
func (n *Notifier) Subject(suffix string) string {
	if n.prefix == "" {
		return suffix
	}
	return n.prefix + "." + suffix
}

func (n *Notifier) publish(ctx context.Context, batchID, suffix string, event any) {
	data, err := json.Marshal(event)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		err = n.pub.Publish(ctx, n.Subject(suffix), data)
	}
	if err != nil {
		n.logger.Warn("Failed to publish batch notification",
			logfields.BatchID(batchID),
			slog.String("subject", n.Subject(suffix)),
			logfields.Error(err))
		return
	}
	n.logger.Debug("Published batch notification",
		logfields.BatchID(batchID),
		slog.String("subject", n.Subject(suffix)))
}
