package eventstore

import (
	"encoding/json"
	"time"
)

// BatchStartedPayload describes a batch as it begins.
type BatchStartedPayload struct {
	Routes int `json:"routes"`
}

// PageWrittenPayload records one written page.
type PageWrittenPayload struct {
	Route      string `json:"route"`
	Path       string `json:"path"`
	Bytes      int    `json:"bytes"`
	DurationMS int64  `json:"duration_ms"`
}

// PageFailedPayload records one failed route.
type PageFailedPayload struct {
	Route      string `json:"route"`
	Path       string `json:"path"`
	Kind       string `json:"kind"`
	Error      string `json:"error"`
	DurationMS int64  `json:"duration_ms"`
}

// BatchCompletedPayload closes a batch.
type BatchCompletedPayload struct {
	Outcome    string `json:"outcome"`
	OutputRoot string `json:"output_root"`
	Summary    string `json:"summary"`
	Routes     int    `json:"routes"`
	Written    int    `json:"written"`
	Failed     int    `json:"failed"`
	DurationMS int64  `json:"duration_ms"`
}

// NewEvent builds an unsaved event of eventType carrying payload as JSON.
func NewEvent(batchID, eventType string, payload any) (*BaseEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, wrap(ErrMarshalPayloadFailed, err)
	}
	return &BaseEvent{
		EventBatchID:   batchID,
		EventType:      eventType,
		EventTimestamp: time.Now(),
		EventPayload:   raw,
	}, nil
}
