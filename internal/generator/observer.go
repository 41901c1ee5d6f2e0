package generator

import (
	"context"

	"git.home.luguber.info/inful/staticboot/internal/routes"
)

// Observer receives batch lifecycle events. PageWritten and PageFailed are
// called from worker goroutines, so implementations must be safe for
// concurrent use. The context passed to BatchCompleted is never cancelled.
type Observer interface {
	BatchStarted(ctx context.Context, batchID string, list []routes.Route)
	PageWritten(ctx context.Context, batchID string, page PageResult)
	PageFailed(ctx context.Context, batchID string, page PageResult)
	BatchCompleted(ctx context.Context, outcome *Outcome)
}

// NopObserver ignores every event. Embed it to implement a subset of hooks.
type NopObserver struct{}

func (NopObserver) BatchStarted(context.Context, string, []routes.Route) {}
func (NopObserver) PageWritten(context.Context, string, PageResult)      {}
func (NopObserver) PageFailed(context.Context, string, PageResult)       {}
func (NopObserver) BatchCompleted(context.Context, *Outcome)             {}

type multiObserver []Observer

// Observers fans events out to every non-nil observer in order.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) BatchStarted(ctx context.Context, batchID string, list []routes.Route) {
	for _, o := range m {
		o.BatchStarted(ctx, batchID, list)
	}
}

func (m multiObserver) PageWritten(ctx context.Context, batchID string, page PageResult) {
	for _, o := range m {
		o.PageWritten(ctx, batchID, page)
	}
}

func (m multiObserver) PageFailed(ctx context.Context, batchID string, page PageResult) {
	for _, o := range m {
		o.PageFailed(ctx, batchID, page)
	}
}

func (m multiObserver) BatchCompleted(ctx context.Context, outcome *Outcome) {
	for _, o := range m {
		o.BatchCompleted(ctx, outcome)
	}
}
