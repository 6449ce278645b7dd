// Package domain holds the append-only domain event log's vocabulary:
// the two event kinds a MatchAggregate ever emits, and the payloads they
// carry.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/tbgai/match-streamer/internal/models"
)

// EventType discriminates the two domain event kinds. It doubles as the
// serialization discriminator (the "event_type" column/field).
type EventType string

const (
	// GlobalEventAddedType marks the first sighting of a feed event.
	GlobalEventAddedType EventType = "GlobalEventAdded"
	// EventEditedType marks a later revision of an already-seen event.
	EventEditedType EventType = "EventEdited"
)

// Event is a single entry in the append-only domain event log. Exactly
// one of GlobalEventAdded or EventEdited is populated, selected by Type.
type Event struct {
	DomainEventID string    `json:"domainEventId"`
	AggregateID   string    `json:"aggregateId"` // match id
	Type          EventType `json:"eventType"`
	OccurredOn    time.Time `json:"occurredOn"`

	GlobalEventAdded *GlobalEventAddedPayload `json:"globalEventAdded,omitempty"`
	EventEdited      *EventEditedPayload      `json:"eventEdited,omitempty"`
}

// GlobalEventAddedPayload carries the full MatchEvent as first recorded.
type GlobalEventAddedPayload struct {
	models.MatchEvent
}

// EventEditedPayload carries only the fields that changed between the
// stored revision and the newly observed one, plus their prior values
// (for audit/debugging; not required to replay state, since replay
// simply overwrites with ChangedFields).
type EventEditedPayload struct {
	FeedEventID   int            `json:"feedEventId"`
	ChangedFields map[string]any `json:"changedFields"`
	OldFields     map[string]any `json:"oldFields"`
}

// NewGlobalEventAdded builds a GlobalEventAdded domain event for a
// freshly observed MatchEvent.
func NewGlobalEventAdded(matchID string, ev models.MatchEvent, now time.Time) Event {
	return Event{
		DomainEventID:    uuid.NewString(),
		AggregateID:      matchID,
		Type:             GlobalEventAddedType,
		OccurredOn:       now,
		GlobalEventAdded: &GlobalEventAddedPayload{MatchEvent: ev},
	}
}

// NewEventEdited builds an EventEdited domain event describing a diff
// against the previously stored revision of feedEventID.
func NewEventEdited(matchID string, feedEventID int, changed, old map[string]any, now time.Time) Event {
	return Event{
		DomainEventID: uuid.NewString(),
		AggregateID:   matchID,
		Type:          EventEditedType,
		OccurredOn:    now,
		EventEdited: &EventEditedPayload{
			FeedEventID:   feedEventID,
			ChangedFields: changed,
			OldFields:     old,
		},
	}
}
