package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	SourceFlags `embed:""`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return RunBuild(ctx, root.Config, b.SourceFlags, root.Verbose, os.Stdout)
}

// RunBuild generates one batch and prints its summary to w.
func RunBuild(ctx context.Context, configPath string, flags SourceFlags, verbose bool, w io.Writer) error {
	cfg, err := LoadConfig(configPath, flags)
	if err != nil {
		return err
	}
	logger := NewLogger(cfg.Logging, verbose, os.Stderr)

	p, err := NewPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	out, err := p.RunBatch(ctx)
	if out != nil {
		_, _ = fmt.Fprintln(w, out.Summary())
		for _, f := range out.Failures() {
			_, _ = fmt.Fprintf(w, "  %s\n", f)
		}
	}
	return err
}
