// Package eventstore records batch lifecycle events in SQLite and projects
// them into a batch history.
package eventstore

import (
	"context"
	"time"
)

// Store defines the interface for persisting and retrieving events.
type Store interface {
	// Append adds a new event to the store.
	Append(ctx context.Context, batchID, eventType string, payload []byte, metadata map[string]string) error

	// GetByBatchID retrieves all events for a specific batch in append order.
	GetByBatchID(ctx context.Context, batchID string) ([]Event, error)

	// GetRange retrieves events within a time range in append order.
	GetRange(ctx context.Context, start, end time.Time) ([]Event, error)

	// Close closes the store and releases resources.
	Close() error
}
