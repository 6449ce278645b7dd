// Package aggregator implements the in-memory, diff-driven domain event
// emitter (C3): it compares each newly observed feed snapshot against
// the events it already holds and emits GlobalEventAdded/EventEdited
// domain events for whatever actually changed.
package aggregator

import (
	"time"

	"github.com/tbgai/match-streamer/internal/domain"
	"github.com/tbgai/match-streamer/internal/models"
)

// matchEndTypeID and matchEndPeriodID identify the feed event that marks
// a match as finished (type END at period 2).
const (
	matchEndTypeID   = 30
	matchEndPeriodID = 2
)

// Aggregate holds the live, reconstructable state of one match: every
// event seen so far, plus whatever domain events have been recorded
// since the last ClearUncommitted call. Finished is sticky — once set it
// is never cleared, even if a later snapshot lacks the END event.
type Aggregate struct {
	MatchID  string
	Finished bool

	events      map[int]models.MatchEvent
	uncommitted []domain.Event
}

// New creates an empty Aggregate for matchID.
func New(matchID string) *Aggregate {
	return &Aggregate{
		MatchID: matchID,
		events:  make(map[int]models.MatchEvent),
	}
}

// Restore rebuilds an Aggregate by replaying a previously persisted
// domain event log, in order. It is the event-store-backed analog of
// loading an aggregate from scratch.
func Restore(matchID string, log []domain.Event) *Aggregate {
	agg := New(matchID)
	for _, evt := range log {
		agg.Apply(evt)
	}
	return agg
}

// Apply folds a single domain event into the aggregate's state. It never
// appends to uncommitted — that only happens via IngestSnapshot, which
// calls apply-then-record together, matching the teacher's worker loop
// convention of separating "mutate state" from "queue for flush".
func (a *Aggregate) Apply(evt domain.Event) {
	switch evt.Type {
	case domain.GlobalEventAddedType:
		if evt.GlobalEventAdded == nil {
			return
		}
		ev := evt.GlobalEventAdded.MatchEvent
		a.events[ev.FeedEventID] = ev
		a.markFinishedIfEnd(ev)
	case domain.EventEditedType:
		if evt.EventEdited == nil {
			return
		}
		ev, ok := a.events[evt.EventEdited.FeedEventID]
		if !ok {
			// Nothing to edit; ignore rather than fail the whole replay.
			return
		}
		applyFields(&ev, evt.EventEdited.ChangedFields)
		a.events[ev.FeedEventID] = ev
		a.markFinishedIfEnd(ev)
	}
}

func (a *Aggregate) markFinishedIfEnd(ev models.MatchEvent) {
	if ev.TypeID == matchEndTypeID && ev.PeriodID == matchEndPeriodID {
		a.Finished = true
	}
}

func (a *Aggregate) record(evt domain.Event) {
	a.Apply(evt)
	a.uncommitted = append(a.uncommitted, evt)
}

// IngestSnapshot diffs a batch of raw feed events against current state,
// emitting and recording a GlobalEventAdded for every unseen
// FeedEventID and an EventEdited for every seen one whose fields
// actually differ. Unchanged events produce nothing. now is the wall
// clock used to stamp OccurredOn.
func (a *Aggregate) IngestSnapshot(raw []models.MatchEvent, now time.Time) {
	for _, next := range raw {
		existing, seen := a.events[next.FeedEventID]
		if !seen {
			a.record(domain.NewGlobalEventAdded(a.MatchID, next, now))
			continue
		}
		changed, old := diffFields(existing, next)
		if len(changed) == 0 {
			continue
		}
		a.record(domain.NewEventEdited(a.MatchID, next.FeedEventID, changed, old, now))
	}
}

// Uncommitted returns the domain events recorded since the last
// ClearUncommitted call, in emission order.
func (a *Aggregate) Uncommitted() []domain.Event {
	out := make([]domain.Event, len(a.uncommitted))
	copy(out, a.uncommitted)
	return out
}

// ClearUncommitted discards the recorded-but-not-yet-persisted domain
// events. Callers must only call this after those events have been
// durably appended; otherwise a crash loses them.
func (a *Aggregate) ClearUncommitted() {
	a.uncommitted = nil
}

// Event returns the current stored revision of a feed event, if any.
func (a *Aggregate) Event(feedEventID int) (models.MatchEvent, bool) {
	ev, ok := a.events[feedEventID]
	return ev, ok
}

// Events returns every event currently held by the aggregate, unordered.
func (a *Aggregate) Events() []models.MatchEvent {
	out := make([]models.MatchEvent, 0, len(a.events))
	for _, ev := range a.events {
		out = append(out, ev)
	}
	return out
}
