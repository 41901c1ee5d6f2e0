package eventstore

import (
	"encoding/json"
	"testing"
	"time"
)

func appendEvent(t *testing.T, store Store, batchID, typ string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := store.Append(t.Context(), batchID, typ, raw, nil); err != nil {
		t.Fatalf("append: %v", err)
	}
}

func TestHistoryProjectionRebuild(t *testing.T) {
	store := newMemoryStore(t)

	appendEvent(t, store, "b1", TypeBatchStarted, BatchStartedPayload{Routes: 3})
	appendEvent(t, store, "b1", TypePageWritten, PageWrittenPayload{Route: "/"})
	appendEvent(t, store, "b1", TypePageFailed, PageFailedPayload{Route: "/bad", Kind: "render", Error: "boom"})
	appendEvent(t, store, "b1", TypePageWritten, PageWrittenPayload{Route: "/about"})
	appendEvent(t, store, "b1", TypeBatchCompleted, BatchCompletedPayload{
		Outcome: "partial", OutputRoot: "out", Routes: 3, Written: 2, Failed: 1, DurationMS: 1200,
	})
	appendEvent(t, store, "b2", TypeBatchStarted, BatchStartedPayload{Routes: 1})

	p := NewHistoryProjection(store, 10)
	if err := p.Rebuild(t.Context()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}

	history := p.GetHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 completed batch, got %d", len(history))
	}
	b1 := history[0]
	if b1.Status != "partial" || b1.Written != 2 || b1.Failed != 1 || b1.Routes != 3 {
		t.Errorf("unexpected summary: %+v", b1)
	}
	if b1.Duration != 1200*time.Millisecond {
		t.Errorf("expected duration 1.2s, got %s", b1.Duration)
	}
	if len(b1.Failures) != 1 || b1.Failures[0].Route != "/bad" || b1.Failures[0].Kind != "render" {
		t.Errorf("unexpected failures: %+v", b1.Failures)
	}
	if b1.OutputRoot != "out" || b1.CompletedAt == nil {
		t.Errorf("completion fields missing: %+v", b1)
	}

	running, ok := p.GetBatch("b2")
	if !ok || running.Status != batchStatusRunning {
		t.Errorf("expected b2 running, got %+v (found=%v)", running, ok)
	}
	last, ok := p.GetLastCompleted()
	if !ok || last.BatchID != "b1" {
		t.Errorf("expected last completed b1, got %+v", last)
	}
	if p.LastSyncTime().IsZero() {
		t.Error("expected last sync time to be set")
	}
}

func TestHistoryProjectionBounded(t *testing.T) {
	store := newMemoryStore(t)
	p := NewHistoryProjection(store, 2)

	for _, id := range []string{"a", "b", "c"} {
		for _, typ := range []string{TypeBatchStarted, TypeBatchCompleted} {
			ev, err := NewEvent(id, typ, BatchCompletedPayload{Outcome: "success"})
			if err != nil {
				t.Fatalf("new event: %v", err)
			}
			p.Apply(ev)
		}
	}

	history := p.GetHistory()
	if len(history) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(history))
	}
	if history[0].BatchID != "c" || history[1].BatchID != "b" {
		t.Errorf("expected newest first [c b], got [%s %s]", history[0].BatchID, history[1].BatchID)
	}
	if _, ok := p.GetBatch("a"); ok {
		t.Error("expected evicted batch a to be pruned")
	}
}

func TestHistoryProjectionEmpty(t *testing.T) {
	p := NewHistoryProjection(newMemoryStore(t), 0)
	if err := p.Rebuild(t.Context()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if _, ok := p.GetLastCompleted(); ok {
		t.Error("expected no completed batch")
	}
}
