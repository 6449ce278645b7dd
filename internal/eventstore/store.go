// Package eventstore defines the append-only domain event log contract
// (C1) and its two implementations: a Postgres-backed store for
// production, and a file-backed store for tests and replay.
package eventstore

import (
	"context"
	"sort"

	"github.com/tbgai/match-streamer/internal/domain"
)

// Store is the append-only event log contract shared by every
// implementation. Load always returns events in ascending OccurredOn
// order, breaking ties by original insertion order. Append is atomic:
// either every event in the batch is durably recorded, or none are.
type Store interface {
	Load(ctx context.Context, matchID string) ([]domain.Event, error)
	Append(ctx context.Context, matchID string, events []domain.Event) error
	Delete(ctx context.Context, matchID string) error
}

// sortEvents orders events by OccurredOn ascending, with a stable sort
// so equal timestamps preserve the order they were appended in.
func sortEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredOn.Before(events[j].OccurredOn)
	})
}
