package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/staticboot/internal/logfields"
	"git.home.luguber.info/inful/staticboot/internal/metrics"
	"git.home.luguber.info/inful/staticboot/internal/render"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

// DefaultTimeout bounds a single render call.
const DefaultTimeout = 60 * time.Second

// Generator renders a fixed route list into an output root.
type Generator struct {
	renderer    render.Renderer
	outputRoot  string
	routes      []routes.Route
	timeout     time.Duration
	concurrency int
	recorder    metrics.Recorder
	observer    Observer
	logger      *slog.Logger
	batchID     string
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout sets the per-route render timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) {
		if d >= 0 {
			g.timeout = d
		}
	}
}

// WithConcurrency bounds the number of routes processed at once. Zero starts
// one task per route.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.concurrency = n
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(g *Generator) {
		if r != nil {
			g.recorder = r
		}
	}
}

// WithObserver adds an event observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(g *Generator) {
		if o == nil {
			return
		}
		if g.observer == nil {
			g.observer = o
			return
		}
		g.observer = Observers(g.observer, o)
	}
}

// WithLogger sets the logger; slog.Default() is used otherwise.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithBatchID overrides the generated batch identifier.
func WithBatchID(id string) Option {
	return func(g *Generator) {
		if id != "" {
			g.batchID = id
		}
	}
}

// New returns a Generator for list. The list is copied; duplicates are kept.
func New(renderer render.Renderer, outputRoot string, list []routes.Route, opts ...Option) *Generator {
	g := &Generator{
		renderer:   renderer,
		outputRoot: outputRoot,
		routes:     append([]routes.Route(nil), list...),
		timeout:    DefaultTimeout,
		recorder:   metrics.NoopRecorder{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.observer == nil {
		g.observer = NopObserver{}
	}
	if g.batchID == "" {
		g.batchID = uuid.NewString()
	}
	return g
}

// BatchID returns the identifier attached to the batch's events.
func (g *Generator) BatchID() string { return g.batchID }

// Generate runs the batch and waits for every route. The Outcome is always
// returned. The error is the context error when ctx was cancelled, otherwise
// Outcome.Err().
func (g *Generator) Generate(ctx context.Context) (*Outcome, error) {
	out := &Outcome{
		BatchID:    g.batchID,
		OutputRoot: g.outputRoot,
		Start:      time.Now(),
		Pages:      make([]PageResult, len(g.routes)),
	}
	log := g.logger.With(logfields.BatchID(g.batchID))
	log.Info("Generating static pages",
		logfields.Routes(len(g.routes)),
		logfields.OutputPath(g.outputRoot))
	g.observer.BatchStarted(ctx, g.batchID, g.routes)

	var eg errgroup.Group
	if g.concurrency > 0 {
		eg.SetLimit(g.concurrency)
	}
	for i, route := range g.routes {
		eg.Go(func() error {
			out.Pages[i] = g.generatePage(ctx, log, route)
			return nil
		})
	}
	_ = eg.Wait()

	out.End = time.Now()
	out.Canceled = ctx.Err() != nil
	g.recorder.ObserveBatchDuration(out.Duration())
	g.recorder.IncBatchOutcome(out.Label())
	g.observer.BatchCompleted(context.WithoutCancel(ctx), out)

	failed := len(out.Failures())
	if failed > 0 {
		log.Warn("Static page generation finished with failures",
			slog.Int("failed", failed),
			logfields.Routes(len(out.Pages)),
			logfields.Duration(out.Duration()))
	} else {
		log.Info("Static page generation finished",
			logfields.Routes(len(out.Pages)),
			logfields.Duration(out.Duration()))
	}

	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("batch %s canceled: %w", g.batchID, err)
	}
	return out, out.Err()
}

// generatePage runs render, map, mkdir and write for one route.
func (g *Generator) generatePage(ctx context.Context, log *slog.Logger, route routes.Route) PageResult {
	g.recorder.AddInFlight(1)
	defer g.recorder.AddInFlight(-1)

	start := time.Now()
	res := PageResult{Route: route}
	fail := func(kind Kind, err error) PageResult {
		res.Duration = time.Since(start)
		res.Err = &PageError{Route: route, Path: res.Path, Kind: kind, Err: err}
		g.recorder.ObservePageDuration(kind.resultLabel(), res.Duration)
		g.recorder.IncPageResult(kind.resultLabel())
		log.Warn("Static page failed",
			logfields.Route(route),
			logfields.OutputPath(res.Path),
			logfields.FailureKind(string(kind)),
			logfields.Error(err))
		g.observer.PageFailed(ctx, g.batchID, res)
		return res
	}

	doc, err := g.render(ctx, route)
	res.Path = routes.OutputPathForRoute(route, g.outputRoot)
	if err != nil {
		return fail(KindRender, err)
	}
	if err := os.MkdirAll(filepath.Dir(res.Path), 0o755); err != nil {
		return fail(KindDirectory, err)
	}
	n, err := writeFileAtomic(res.Path, doc)
	if err != nil {
		return fail(KindWrite, err)
	}

	res.Bytes = n
	res.Duration = time.Since(start)
	g.recorder.ObservePageDuration(metrics.ResultWritten, res.Duration)
	g.recorder.IncPageResult(metrics.ResultWritten)
	log.Debug("Static page written",
		logfields.Route(route),
		logfields.OutputPath(res.Path),
		logfields.Bytes(n),
		logfields.Duration(res.Duration))
	g.observer.PageWritten(ctx, g.batchID, res)
	return res
}

type renderResult struct {
	doc string
	err error
}

// render calls the engine with a fresh request context under the per-route
// timeout. The call is abandoned when the deadline passes even if the engine
// ignores its context.
func (g *Generator) render(ctx context.Context, route routes.Route) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	done := make(chan renderResult, 1)
	go func() {
		doc, err := g.renderer.Render(ctx, route, render.NewRequestContext())
		done <- renderResult{doc: doc, err: err}
	}()
	select {
	case r := <-done:
		return r.doc, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("render %s: %w", route, ctx.Err())
	}
}

// writeFileAtomic replaces path with content through a temporary file in the
// same directory, so readers never observe a truncated page.
func writeFileAtomic(path, content string) (int, error) {
	f, err := os.CreateTemp(filepath.Dir(path), ".staticboot-*.tmp")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	n, err := f.WriteString(content)
	if err != nil {
		_ = f.Close()
		cleanup()
		return 0, err
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		cleanup()
		return 0, err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return 0, err
	}
	return n, nil
}
