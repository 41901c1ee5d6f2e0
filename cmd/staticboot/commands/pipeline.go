package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/staticboot/internal/config"
	"git.home.luguber.info/inful/staticboot/internal/eventstore"
	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/generator"
	"git.home.luguber.info/inful/staticboot/internal/logfields"
	"git.home.luguber.info/inful/staticboot/internal/metrics"
	"git.home.luguber.info/inful/staticboot/internal/notify"
	"git.home.luguber.info/inful/staticboot/internal/publish"
	"git.home.luguber.info/inful/staticboot/internal/render"
	"git.home.luguber.info/inful/staticboot/internal/retry"
	"git.home.luguber.info/inful/staticboot/internal/routes"
)

const historySize = 100

// Pipeline holds everything a batch needs. One Pipeline serves every batch of
// a watch or daemon session.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	renderer  render.Renderer
	recorder  metrics.Recorder
	registry  *prometheus.Registry
	observers []generator.Observer
	store     eventstore.Store
	history   *eventstore.HistoryProjection
	nats      *notify.Client
	publisher *publish.Publisher
}

// NewPipeline configures the engine and the optional history, notify,
// publish and metrics integrations enabled in cfg.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{cfg: cfg, logger: logger, recorder: metrics.NoopRecorder{}}
	ready := false
	defer func() {
		if !ready {
			_ = p.Close()
		}
	}()

	var err error
	p.renderer, err = render.Configure(cfg.Input, cfg.Render.IsResilient(), render.Options{
		Engine:  render.Engine(cfg.Render.Engine),
		BaseURL: cfg.Render.BaseURL,
		Browser: render.BrowserOptions{
			Bin:        cfg.Render.Browser.Bin,
			Headless:   cfg.Render.Browser.IsHeadless(),
			WaitStable: cfg.Render.Browser.WaitStableDuration(),
		},
		CacheSize: cfg.Render.CacheSize,
		MountID:   cfg.Render.MountID,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("Rendering engine configured",
		logfields.Engine(string(cfg.Render.Engine)),
		slog.Bool("resilient", cfg.Render.IsResilient()))

	if cfg.Metrics.Enabled {
		p.registry = prometheus.NewRegistry()
		p.recorder = metrics.NewPrometheusRecorder(p.registry)
	}

	if cfg.History.Enabled {
		store, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			return nil, err
		}
		p.store = store
		p.history = eventstore.NewHistoryProjection(store, historySize)
		if err := p.history.Rebuild(ctx); err != nil {
			logger.Warn("Failed to rebuild batch history", logfields.Error(err))
		}
		p.observers = append(p.observers, eventstore.NewObserver(store, p.history, logger))
	}

	if cfg.Notify.Enabled {
		client, err := notify.Connect(ctx, notify.Options{
			URL:           cfg.Notify.URL,
			SubjectPrefix: cfg.Notify.Subject,
			Stream:        cfg.Notify.Stream,
		})
		if err != nil {
			return nil, err
		}
		p.nats = client
		p.observers = append(p.observers, notify.NewNotifier(client, cfg.Notify.Subject, logger))
	}

	if cfg.Publish.Enabled {
		s3, err := publish.NewS3Store(publish.S3Config{
			Endpoint:  cfg.Publish.Endpoint,
			Region:    cfg.Publish.Region,
			AccessKey: cfg.Publish.AccessKey,
			SecretKey: cfg.Publish.SecretKey,
			Bucket:    cfg.Publish.Bucket,
			UseSSL:    cfg.Publish.UseSSL,
		})
		if err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "invalid publish settings").Build()
		}
		policy := retry.NewPolicy(cfg.Publish.RetryBackoff, time.Second, 30*time.Second, cfg.Publish.MaxRetries)
		p.publisher = publish.New(s3, cfg.Publish.Prefix, logger, publish.WithRetry(policy))
	}
	ready = true
	return p, nil
}

// Routes resolves the route list for the next batch.
func (p *Pipeline) Routes(ctx context.Context) ([]routes.Route, error) {
	explicit, err := routes.Normalize(p.cfg.Routes)
	if err != nil {
		return nil, err
	}
	if !p.cfg.AutoDiscover {
		return explicit, nil
	}
	return routes.Resolve(ctx, render.DiscovererFor(render.Engine(p.cfg.Render.Engine)), p.cfg.Input, explicit)
}

// RunBatch generates every route once, persists the report and publishes the
// written pages. Report and publish failures are logged only.
func (p *Pipeline) RunBatch(ctx context.Context) (*generator.Outcome, error) {
	list, err := p.Routes(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, ferrors.ValidationError("no routes to generate").
			WithContext("input", p.cfg.Input).
			UserAction().
			Build()
	}

	outRoot := p.cfg.Output.Directory
	if err := os.MkdirAll(outRoot, 0o755); err != nil {
		return nil, ferrors.FileSystemError("failed to create output directory").
			WithCause(err).
			WithContext("output", outRoot).
			Build()
	}
	for path, group := range routes.Collisions(list, outRoot) {
		p.logger.Warn("Several routes write the same page; the last one wins",
			"collision", routes.DescribeCollision(path, group))
	}

	gen := generator.New(p.renderer, outRoot, list,
		generator.WithTimeout(p.cfg.Render.TimeoutDuration()),
		generator.WithConcurrency(p.cfg.Render.Concurrency),
		generator.WithRecorder(p.recorder),
		generator.WithObserver(generator.Observers(p.observers...)),
		generator.WithLogger(p.logger),
	)
	out, genErr := gen.Generate(ctx)

	if err := out.Persist(p.cfg.Output.ReportDir); err != nil {
		p.logger.Warn("Failed to write batch report", logfields.BatchID(out.BatchID), logfields.Error(err))
	}
	if p.publisher != nil && len(out.Written()) > 0 && ctx.Err() == nil {
		if _, err := p.publisher.Publish(ctx, out); err != nil {
			p.logger.Warn("Publishing finished with errors", logfields.BatchID(out.BatchID), logfields.Error(err))
		}
	}
	return out, genErr
}

// MetricsHandler serves the pipeline's metrics, or nil when metrics are off.
func (p *Pipeline) MetricsHandler() http.Handler {
	if p.registry == nil {
		return nil
	}
	return metrics.HTTPHandler(p.registry)
}

// History returns the batch history, or nil when history is off.
func (p *Pipeline) History() *eventstore.HistoryProjection { return p.history }

// Close releases the engine and the integrations.
func (p *Pipeline) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.renderer != nil {
		errs = append(errs, render.Close(p.renderer))
	}
	if p.nats != nil {
		errs = append(errs, p.nats.Close())
	}
	if p.store != nil {
		errs = append(errs, p.store.Close())
	}
	return errors.Join(errs...)
}
