package eventstore

import "time"

// Event types written by the generator observer.
const (
	TypeBatchStarted   = "BatchStarted"
	TypePageWritten    = "PageWritten"
	TypePageFailed     = "PageFailed"
	TypeBatchCompleted = "BatchCompleted"
)

// Event represents a stored batch event.
type Event interface {
	ID() int64
	BatchID() string
	Type() string
	Timestamp() time.Time
	Payload() []byte
	Metadata() map[string]string
}

// BaseEvent provides a default implementation of Event.
type BaseEvent struct {
	EventID        int64
	EventBatchID   string
	EventType      string
	EventTimestamp time.Time
	EventPayload   []byte
	EventMetadata  map[string]string
}

func (e *BaseEvent) ID() int64                   { return e.EventID }
func (e *BaseEvent) BatchID() string             { return e.EventBatchID }
func (e *BaseEvent) Type() string                { return e.EventType }
func (e *BaseEvent) Timestamp() time.Time        { return e.EventTimestamp }
func (e *BaseEvent) Payload() []byte             { return e.EventPayload }
func (e *BaseEvent) Metadata() map[string]string { return e.EventMetadata }
