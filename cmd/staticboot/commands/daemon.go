package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"git.home.luguber.info/inful/staticboot/internal/config"
	"git.home.luguber.info/inful/staticboot/internal/daemon"
)

// WatchCmd implements the 'watch' command.
type WatchCmd struct {
	SourceFlags `embed:""`
	Debounce time.Duration `help:"Quiet period after the last change before rebuilding; 0 keeps the configured value"`
}

func (w *WatchCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config, w.SourceFlags)
	if err != nil {
		return err
	}
	if w.Debounce > 0 {
		cfg.Daemon.Debounce = w.Debounce.String()
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDaemon(ctx, cfg, DaemonSettings{Watch: true}, NewLogger(cfg.Logging, root.Verbose, os.Stderr))
}

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	SourceFlags `embed:""`
	AdminAddr string `name:"admin-addr" help:"Admin server address (overrides metrics.addr)"`
}

func (d *DaemonCmd) Run(_ *Global, root *CLI) error {
	cfg, err := LoadConfig(root.Config, d.SourceFlags)
	if err != nil {
		return err
	}
	addr := d.AdminAddr
	if addr == "" && cfg.Metrics.Enabled {
		addr = cfg.Metrics.Addr
	}
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunDaemon(ctx, cfg, DaemonSettings{
		Interval:  cfg.Daemon.ScheduleInterval(),
		Watch:     cfg.Daemon.Watch,
		AdminAddr: addr,
	}, NewLogger(cfg.Logging, root.Verbose, os.Stderr))
}

// DaemonSettings select the triggers of a long-running session.
type DaemonSettings struct {
	Interval  time.Duration
	Watch     bool
	AdminAddr string
}

// RunDaemon regenerates until ctx is cancelled.
func RunDaemon(ctx context.Context, cfg *config.Config, s DaemonSettings, logger *slog.Logger) error {
	p, err := NewPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	opts := daemon.Options{
		Interval:    s.Interval,
		Debounce:    cfg.Daemon.DebounceDuration(),
		IgnorePaths: ignorePaths(cfg),
		AdminAddr:   s.AdminAddr,
		Metrics:     p.MetricsHandler(),
		MetricsPath: cfg.Metrics.Path,
		History:     p.History(),
		Logger:      logger,
	}
	if s.Watch {
		opts.WatchDir = cfg.Input
	}
	logger.Info("Starting daemon",
		slog.Duration("interval", s.Interval),
		slog.Bool("watch", s.Watch),
		slog.String("admin_addr", s.AdminAddr))
	return daemon.New(p.RunBatch, opts).Run(ctx)
}

// ignorePaths lists generated state below the input directory that must not
// trigger a rebuild. An output directory equal to the input is handled by the
// daemon itself.
func ignorePaths(cfg *config.Config) []string {
	var paths []string
	if cfg.History.Enabled {
		paths = append(paths, cfg.History.Path, cfg.History.Path+"-wal", cfg.History.Path+"-shm", cfg.History.Path+"-journal")
	}
	in, _ := filepath.Abs(cfg.Input)
	if out, _ := filepath.Abs(cfg.Output.Directory); out != in {
		paths = append(paths, cfg.Output.Directory)
	}
	if rep, _ := filepath.Abs(cfg.Output.ReportDir); rep != in {
		paths = append(paths, cfg.Output.ReportDir)
	}
	return paths
}
