package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	ferrors "git.home.luguber.info/inful/staticboot/internal/foundation/errors"
	"git.home.luguber.info/inful/staticboot/internal/generator"
	"git.home.luguber.info/inful/staticboot/internal/logfields"
	"git.home.luguber.info/inful/staticboot/internal/retry"
)

// ContentType is attached to every uploaded page.
const ContentType = "text/html; charset=utf-8"

const defaultConcurrency = 4

// Result lists what an upload pass did. Keys are object keys.
type Result struct {
	Uploaded []string
	Failed   map[string]error
}

// Publisher uploads the pages of a batch.
type Publisher struct {
	store       ObjectStore
	prefix      string
	concurrency int
	retry       retry.Policy
	logger      *slog.Logger
}

// Option customizes a Publisher.
type Option func(*Publisher)

// WithRetry retries failed uploads according to policy. Without it every
// page is tried once.
func WithRetry(policy retry.Policy) Option {
	return func(p *Publisher) { p.retry = policy }
}

// WithConcurrency bounds the number of uploads in flight.
func WithConcurrency(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// New returns a Publisher writing below prefix.
func New(store ObjectStore, prefix string, logger *slog.Logger, opts ...Option) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{
		store:       store,
		prefix:      strings.Trim(prefix, "/"),
		concurrency: defaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ObjectKey maps a file below root to its object key.
func (p *Publisher) ObjectKey(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", err
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return "", fmt.Errorf("%s is outside %s", file, root)
	}
	if p.prefix == "" {
		return rel, nil
	}
	return path.Join(p.prefix, rel), nil
}

// Publish uploads every written page of out once, even when several routes
// share a file. A failed upload never changes the batch outcome; it is
// reported in the Result and the returned storage error.
func (p *Publisher) Publish(ctx context.Context, out *generator.Outcome) (*Result, error) {
	seen := make(map[string]struct{})
	var files []string
	for _, page := range out.Written() {
		if _, dup := seen[page.Path]; dup {
			continue
		}
		seen[page.Path] = struct{}{}
		files = append(files, page.Path)
	}

	res := &Result{Failed: map[string]error{}}
	var mu sync.Mutex
	var eg errgroup.Group
	eg.SetLimit(p.concurrency)
	for _, file := range files {
		eg.Go(func() error {
			key, err := p.upload(ctx, out.OutputRoot, file)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[key] = err
				p.logger.Warn("Failed to publish page",
					logfields.BatchID(out.BatchID),
					logfields.OutputPath(file),
					logfields.Error(err))
				return nil
			}
			res.Uploaded = append(res.Uploaded, key)
			return nil
		})
	}
	_ = eg.Wait()

	p.logger.Info("Published static pages",
		logfields.BatchID(out.BatchID),
		slog.Int("uploaded", len(res.Uploaded)),
		slog.Int("failed", len(res.Failed)))
	if len(res.Failed) > 0 {
		return res, ferrors.StorageError("some pages could not be published").
			WithContext("batch_id", out.BatchID).
			WithContext("failed", len(res.Failed)).
			Build()
	}
	return res, nil
}

func (p *Publisher) upload(ctx context.Context, root, file string) (string, error) {
	key, err := p.ObjectKey(root, file)
	if err != nil {
		return file, err
	}
	return key, p.retry.Do(ctx, func(attempt int) error {
		if attempt > 0 {
			p.logger.Debug("Retrying page upload", logfields.OutputPath(file), slog.Int("attempt", attempt))
		}
		f, err := os.Open(file)
		if err != nil {
			return retry.Permanent(err)
		}
		defer func() { _ = f.Close() }()
		info, err := f.Stat()
		if err != nil {
			return retry.Permanent(err)
		}
		return p.store.Put(ctx, key, f, info.Size(), ContentType)
	})
}
