package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/staticboot/internal/config"
	"git.home.luguber.info/inful/staticboot/internal/eventstore"
	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	DB    string `help:"History database (defaults to history.path from the configuration)"`
	Limit int    `short:"n" help:"Number of batches to show" default:"10"`
	JSON  bool   `help:"Print JSON instead of a table"`
}

func (h *HistoryCmd) Run(_ *Global, root *CLI) error {
	path := h.DB
	if path == "" {
		cfg, err := config.Read(root.Config)
		if err != nil {
			return err
		}
		if !cfg.History.Enabled {
			return ferrors.ConfigError("history is disabled (set history.enabled or pass --db)").UserAction().Build()
		}
		path = cfg.History.Path
		if path == "" {
			path = config.Defaults().History.Path
		}
	}
	return RunHistory(context.Background(), path, h.Limit, h.JSON, os.Stdout)
}

// RunHistory prints the latest limit batches recorded in the database at path.
func RunHistory(ctx context.Context, path string, limit int, asJSON bool, w io.Writer) error {
	if _, err := os.Stat(path); err != nil {
		return ferrors.ConfigError("history database not found").WithCause(err).WithContext("path", path).Build()
	}
	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	projection := eventstore.NewHistoryProjection(store, historySize)
	if err := projection.Rebuild(ctx); err != nil {
		return err
	}
	batches := projection.GetHistory()
	if limit > 0 && len(batches) > limit {
		batches = batches[:limit]
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(batches)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "BATCH\tSTARTED\tSTATUS\tROUTES\tWRITTEN\tFAILED\tDURATION")
	for _, b := range batches {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			b.BatchID, b.StartedAt.Format(time.RFC3339), b.Status,
			b.Routes, b.Written, b.Failed, b.Duration.Round(time.Millisecond))
	}
	return tw.Flush()
}
