// Package projector implements the read-side fold (C4): applying domain
// events to an in-memory read model, independently of the aggregator
// that emitted them. It is pure and has no durability of its own — the
// ingestion loop is responsible for upserting whatever it returns.
package projector

import (
	"strconv"
	"time"

	"github.com/tbgai/match-streamer/internal/aggregator"
	"github.com/tbgai/match-streamer/internal/domain"
	"github.com/tbgai/match-streamer/internal/models"
)

// Projector holds, per match, the current read-model row for every
// event it has seen.
type Projector struct {
	states map[string]map[string]models.ReadModelRow // matchID -> eventID -> row
}

// New creates an empty Projector.
func New() *Projector {
	return &Projector{states: make(map[string]map[string]models.ReadModelRow)}
}

// Project folds a single domain event into the read model and returns
// the row it produced or updated, along with whether anything changed
// (an EventEdited naming only unknown fields produces no row update).
func (p *Projector) Project(evt domain.Event, now time.Time) (models.ReadModelRow, bool) {
	state, ok := p.states[evt.AggregateID]
	if !ok {
		state = make(map[string]models.ReadModelRow)
		p.states[evt.AggregateID] = state
	}

	switch evt.Type {
	case domain.GlobalEventAddedType:
		if evt.GlobalEventAdded == nil {
			return models.ReadModelRow{}, false
		}
		ev := evt.GlobalEventAdded.MatchEvent
		row := models.ReadModelRow{
			EventID:   int64(ev.FeedEventID),
			MatchID:   evt.AggregateID,
			Event:     ev,
			UpdatedAt: now,
		}
		state[eventKey(ev.FeedEventID)] = row
		return row, true

	case domain.EventEditedType:
		if evt.EventEdited == nil {
			return models.ReadModelRow{}, false
		}
		key := eventKey(evt.EventEdited.FeedEventID)
		row, found := state[key]
		if !found {
			return models.ReadModelRow{}, false
		}
		unknown := aggregator.ApplyChangedFields(&row.Event, evt.EventEdited.ChangedFields)
		if len(unknown) == len(evt.EventEdited.ChangedFields) {
			return models.ReadModelRow{}, false
		}
		row.EventID = int64(row.Event.FeedEventID)
		row.UpdatedAt = now
		state[key] = row
		return row, true
	}
	return models.ReadModelRow{}, false
}

// ProjectAll folds a batch of domain events in order and returns the
// rows that actually changed, deduplicated by feed event id (last
// writer wins within the batch), matching the projection store's own
// upsert semantics.
func (p *Projector) ProjectAll(events []domain.Event, now time.Time) []models.ReadModelRow {
	byKey := make(map[string]models.ReadModelRow)
	order := make([]string, 0, len(events))
	for _, evt := range events {
		row, changed := p.Project(evt, now)
		if !changed {
			continue
		}
		key := eventKey(row.Event.FeedEventID)
		if _, existed := byKey[key]; !existed {
			order = append(order, key)
		}
		byKey[key] = row
	}
	out := make([]models.ReadModelRow, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// CurrentState returns the full current read model for a match.
func (p *Projector) CurrentState(matchID string) []models.ReadModelRow {
	state, ok := p.states[matchID]
	if !ok {
		return nil
	}
	out := make([]models.ReadModelRow, 0, len(state))
	for _, row := range state {
		out = append(out, row)
	}
	return out
}

func eventKey(feedEventID int) string {
	return strconv.Itoa(feedEventID)
}
