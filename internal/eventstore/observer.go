package eventstore

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/staticboot/internal/generator"
	"git.home.luguber.info/inful/staticboot/internal/logfields"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

// Observer appends generator events to a Store. Append failures are logged
// and never affect the batch.
type Observer struct {
	store      Store
	projection *HistoryProjection
	logger     *slog.Logger
}

var _ generator.Observer = (*Observer)(nil)

// NewObserver returns an Observer writing to store. projection may be nil;
// when set it is kept current with every appended event.
func NewObserver(store Store, projection *HistoryProjection, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{store: store, projection: projection, logger: logger}
}

func (o *Observer) BatchStarted(ctx context.Context, batchID string, list []routes.Route) {
	o.record(ctx, batchID, TypeBatchStarted, BatchStartedPayload{Routes: len(list)})
}

func (o *Observer) PageWritten(ctx context.Context, batchID string, page generator.PageResult) {
	o.record(ctx, batchID, TypePageWritten, PageWrittenPayload{
		Route:      page.Route,
		Path:       page.Path,
		Bytes:      page.Bytes,
		DurationMS: page.Duration.Milliseconds(),
	})
}

func (o *Observer) PageFailed(ctx context.Context, batchID string, page generator.PageResult) {
	payload := PageFailedPayload{
		Route:      page.Route,
		Path:       page.Path,
		DurationMS: page.Duration.Milliseconds(),
	}
	if page.Err != nil {
		payload.Kind = string(page.Err.Kind)
		payload.Error = page.Err.Err.Error()
	}
	o.record(ctx, batchID, TypePageFailed, payload)
}

func (o *Observer) BatchCompleted(ctx context.Context, out *generator.Outcome) {
	failed := len(out.Failures())
	o.record(ctx, out.BatchID, TypeBatchCompleted, BatchCompletedPayload{
		Outcome:    string(out.Label()),
		OutputRoot: out.OutputRoot,
		Summary:    out.Summary(),
		Routes:     len(out.Pages),
		Written:    len(out.Pages) - failed,
		Failed:     failed,
		DurationMS: out.Duration().Milliseconds(),
	})
}

func (o *Observer) record(ctx context.Context, batchID, eventType string, payload any) {
	event, err := NewEvent(batchID, eventType, payload)
	if err == nil {
		// A cancelled batch still records its events.
		err = o.store.Append(context.WithoutCancel(ctx), batchID, eventType, event.Payload(), nil)
	}
	if err != nil {
		o.logger.Warn("Failed to record batch event",
			logfields.BatchID(batchID),
			slog.String("event", eventType),
			logfields.Error(err))
		return
	}
	if o.projection != nil {
		o.projection.Apply(event)
	}
}
