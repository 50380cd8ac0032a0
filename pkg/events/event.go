package events

import (
	"time"

	"github.com/google/uuid"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "SOURCE_INGESTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is the common implementation; the constructors below are the
// preferred way to build valid events.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewSourceIngested fires when a source text is stored or replaced and its
// embedding run has been queued.
func NewSourceIngested(sourceContentId, organizationId uuid.UUID, alias string, replaced bool) Event {
	return BaseEvent{
		Type: "SOURCE_INGESTED",
		Data: map[string]interface{}{
			"source_content_id": sourceContentId,
			"organization_id":   organizationId,
			"alias":             alias,
			"replaced":          replaced,
		},
		OccurredAt: time.Now(),
	}
}

// NewSourceChunksReplaced fires after the chunk rows of a source have been
// atomically swapped for a fresh set.
func NewSourceChunksReplaced(sourceContentId, organizationId uuid.UUID, chunkCount int) Event {
	return BaseEvent{
		Type: "SOURCE_CHUNKS_REPLACED",
		Data: map[string]interface{}{
			"source_content_id": sourceContentId,
			"organization_id":   organizationId,
			"chunk_count":       chunkCount,
		},
		OccurredAt: time.Now(),
	}
}
