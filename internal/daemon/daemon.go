// Package daemon keeps a static mirror current: it regenerates on a fixed
// interval and when the input directory changes, and serves health and
// metrics endpoints.
package daemon

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/staticboot/internal/eventstore"
	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/generator"
	"git.home.luguber.info/inful/staticboot/internal/logfields"
)

// Runner performs one batch.
type Runner func(ctx context.Context) (*generator.Outcome, error)

// Options configure a Daemon. Zero values disable the matching feature.
type Options struct {
	Interval    time.Duration
	WatchDir    string
	Debounce    time.Duration
	IgnorePaths []string // files or directories never treated as input changes
	AdminAddr   string
	Metrics     http.Handler
	MetricsPath string
	History     *eventstore.HistoryProjection
	Logger      *slog.Logger
}

// Daemon runs batches one at a time in response to triggers.
type Daemon struct {
	opts    Options
	run     Runner
	logger  *slog.Logger
	trigger chan string
	started time.Time

	mu      sync.RWMutex
	running bool
	batches int
	last    *generator.Outcome
	lastErr error
	outputs map[string]struct{}

	addrMu sync.Mutex
	addr   net.Addr
	ready  chan struct{}
}

// New returns a Daemon that calls run for every batch.
func New(run Runner, opts Options) *Daemon {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	return &Daemon{
		opts:    opts,
		run:     run,
		logger:  opts.Logger,
		trigger: make(chan string, 1),
		outputs: make(map[string]struct{}),
		ready:   make(chan struct{}),
	}
}

// Trigger requests a batch. Requests made while one is already pending are
// coalesced.
func (d *Daemon) Trigger(reason string) {
	select {
	case d.trigger <- reason:
	default:
		d.logger.Debug("Batch already pending", "reason", reason)
	}
}

// Run performs an initial batch and then serves triggers until ctx is done.
func (d *Daemon) Run(ctx context.Context) error {
	d.started = time.Now()

	var srv *http.Server
	if d.opts.AdminAddr != "" {
		ln, err := net.Listen("tcp", d.opts.AdminAddr)
		if err != nil {
			return ferrors.RuntimeError("failed to start admin server").
				WithCause(err).
				WithContext("addr", d.opts.AdminAddr).
				Build()
		}
		d.addrMu.Lock()
		d.addr = ln.Addr()
		d.addrMu.Unlock()
		srv = &http.Server{Handler: d.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				d.logger.Error("Admin server stopped", logfields.Error(err))
			}
		}()
		d.logger.Info("Admin server listening", "addr", ln.Addr().String())
	}

	var sched *Scheduler
	if d.opts.Interval > 0 {
		var err error
		if sched, err = NewScheduler(); err != nil {
			d.shutdown(srv, nil, nil)
			return err
		}
		if _, err := sched.ScheduleEvery("regenerate", d.opts.Interval, func() { d.Trigger("schedule") }); err != nil {
			d.shutdown(srv, sched, nil)
			return err
		}
		sched.Start()
	}

	var watcher *Watcher
	if d.opts.WatchDir != "" {
		var err error
		watcher, err = NewWatcher(d.opts.WatchDir, d.opts.Debounce, d.ignore, func() { d.Trigger("input changed") })
		if err != nil {
			d.shutdown(srv, sched, nil)
			return err
		}
		if err := watcher.Start(ctx); err != nil {
			d.shutdown(srv, sched, watcher)
			return err
		}
	}

	close(d.ready)
	d.Trigger("startup")
	for {
		select {
		case <-ctx.Done():
			d.shutdown(srv, sched, watcher)
			return nil
		case reason := <-d.trigger:
			d.runBatch(ctx, reason)
		}
	}
}

func (d *Daemon) shutdown(srv *http.Server, sched *Scheduler, watcher *Watcher) {
	if watcher != nil {
		_ = watcher.Stop()
	}
	if sched != nil {
		_ = sched.Stop()
	}
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
	d.logger.Info("Daemon stopped")
}

func (d *Daemon) runBatch(ctx context.Context, reason string) {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()

	d.logger.Info("Starting batch", "reason", reason)
	out, err := d.run(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	d.batches++
	d.last, d.lastErr = out, err
	if out != nil {
		for _, p := range out.Written() {
			d.rememberOutput(p.Path, out.OutputRoot)
		}
	}
	if err != nil {
		d.logger.Warn("Batch finished with errors", logfields.Error(err))
	}
}

// rememberOutput records path and its parent directories up to root so the
// watcher does not mistake generated pages for input changes.
func (d *Daemon) rememberOutput(path, root string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	rootAbs, _ := filepath.Abs(root)
	for p := abs; ; p = filepath.Dir(p) {
		if p == rootAbs || p == filepath.Dir(p) {
			break
		}
		d.outputs[p] = struct{}{}
	}
}

// ignore filters watcher events: temporary and report files, configured
// paths, pages written by earlier batches, and pages being written now.
func (d *Daemon) ignore(path string, isDir bool) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".staticboot-") || strings.HasSuffix(base, ".tmp") ||
		base == generator.ReportJSON || base == generator.ReportText {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	for _, p := range d.opts.IgnorePaths {
		if pa, err := filepath.Abs(p); err == nil && (abs == pa || strings.HasPrefix(abs, pa+string(filepath.Separator))) {
			return true
		}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.outputs[abs]; ok {
		return true
	}
	return d.running && (isDir || base == "index.html")
}

// Addr returns the admin server address once Run has started it.
func (d *Daemon) Addr() net.Addr {
	d.addrMu.Lock()
	defer d.addrMu.Unlock()
	return d.addr
}

// Ready is closed once Run has started its servers and watchers.
func (d *Daemon) Ready() <-chan struct{} { return d.ready }
