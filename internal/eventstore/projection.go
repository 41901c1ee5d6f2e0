package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

const (
	batchStatusRunning = "running"
	defaultHistorySize = 100
)

// PageFailure is a failed route inside a BatchSummary.
type PageFailure struct {
	Route string `json:"route"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// BatchSummary is the read model of one batch.
type BatchSummary struct {
	BatchID     string        `json:"batch_id"`
	Status      string        `json:"status"` // running, success, partial, failed, canceled
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	OutputRoot  string        `json:"output_root,omitempty"`
	Routes      int           `json:"routes"`
	Written     int           `json:"written"`
	Failed      int           `json:"failed"`
	Failures    []PageFailure `json:"failures,omitempty"`
}

// HistoryProjection rebuilds batch summaries from stored events, newest
// first, bounded to maxSize completed batches.
type HistoryProjection struct {
	mu       sync.RWMutex
	store    Store
	batches  map[string]*BatchSummary
	history  []*BatchSummary
	maxSize  int
	lastSync time.Time
}

// NewHistoryProjection creates a projection backed by store.
func NewHistoryProjection(store Store, maxHistorySize int) *HistoryProjection {
	if maxHistorySize <= 0 {
		maxHistorySize = defaultHistorySize
	}
	return &HistoryProjection{
		store:   store,
		batches: make(map[string]*BatchSummary),
		maxSize: maxHistorySize,
	}
}

// Rebuild reconstructs the projection from every stored event.
func (p *HistoryProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetRange(ctx, time.Time{}, time.Now().Add(time.Hour))
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.batches = make(map[string]*BatchSummary)
	p.history = nil
	for _, event := range events {
		p.applyEventLocked(event)
	}
	sort.SliceStable(p.history, func(i, j int) bool {
		return p.history[i].StartedAt.After(p.history[j].StartedAt)
	})
	p.trimLocked()
	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event.
func (p *HistoryProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *HistoryProjection) applyEventLocked(event Event) {
	id := event.BatchID()
	if id == "" {
		return
	}
	summary, ok := p.batches[id]
	if !ok {
		summary = &BatchSummary{BatchID: id, Status: batchStatusRunning, StartedAt: event.Timestamp()}
		p.batches[id] = summary
	}

	switch event.Type() {
	case TypeBatchStarted:
		var payload BatchStartedPayload
		summary.StartedAt = event.Timestamp()
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Routes = payload.Routes
		}

	case TypePageWritten:
		summary.Written++

	case TypePageFailed:
		summary.Failed++
		var payload PageFailedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Failures = append(summary.Failures, PageFailure{
				Route: payload.Route, Kind: payload.Kind, Error: payload.Error,
			})
		}

	case TypeBatchCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		var payload BatchCompletedPayload
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			summary.Status = payload.Outcome
			summary.OutputRoot = payload.OutputRoot
			summary.Routes = payload.Routes
			summary.Written = payload.Written
			summary.Failed = payload.Failed
			if payload.DurationMS > 0 {
				summary.Duration = time.Duration(payload.DurationMS) * time.Millisecond
			}
		}
		p.addToHistoryLocked(summary)
	}
}

func (p *HistoryProjection) addToHistoryLocked(summary *BatchSummary) {
	for _, h := range p.history {
		if h.BatchID == summary.BatchID {
			return
		}
	}
	p.history = append([]*BatchSummary{summary}, p.history...)
	p.trimLocked()
}

// trimLocked bounds history and drops completed batches that fell out of it.
func (p *HistoryProjection) trimLocked() {
	if len(p.history) > p.maxSize {
		p.history = p.history[:p.maxSize]
	}
	keep := make(map[string]struct{}, len(p.history))
	for _, h := range p.history {
		keep[h.BatchID] = struct{}{}
	}
	for id, s := range p.batches {
		if s.Status == batchStatusRunning {
			continue
		}
		if _, ok := keep[id]; !ok {
			delete(p.batches, id)
		}
	}
}

// GetHistory returns completed batches, newest first.
func (p *HistoryProjection) GetHistory() []BatchSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]BatchSummary, len(p.history))
	for i, h := range p.history {
		out[i] = *h
	}
	return out
}

// GetBatch returns the summary of one batch.
func (p *HistoryProjection) GetBatch(batchID string) (BatchSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.batches[batchID]
	if !ok {
		return BatchSummary{}, false
	}
	return *s, true
}

// GetLastCompleted returns the newest completed batch.
func (p *HistoryProjection) GetLastCompleted() (BatchSummary, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(p.history) == 0 {
		return BatchSummary{}, false
	}
	return *p.history[0], true
}

// LastSyncTime returns when the projection was last rebuilt.
func (p *HistoryProjection) LastSyncTime() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
