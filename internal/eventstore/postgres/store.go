// Package postgres implements eventstore.Store on top of pgxpool, one
// row per domain event with a discriminator column matching the
// original provider's serialize/deserialize dispatch.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tbgai/match-streamer/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_domain_events (
	domain_event_id UUID PRIMARY KEY,
	aggregate_id    TEXT NOT NULL,
	event_type      TEXT NOT NULL,
	occurred_on     TIMESTAMPTZ NOT NULL,
	payload         JSONB NOT NULL,
	insert_seq      BIGSERIAL NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_domain_events_aggregate
	ON match_domain_events (aggregate_id, occurred_on, insert_seq);
`

// Store is a pgxpool-backed eventstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. Callers own the pool's lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the backing table and index if they do not
// already exist. Safe to call repeatedly.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("postgres eventstore: ensure schema: %w", err)
	}
	return nil
}

type payloadRow struct {
	EventType string
	Payload   []byte
}

// Load returns every domain event recorded for matchID in ascending
// occurred_on order, with insert_seq breaking ties.
func (s *Store) Load(ctx context.Context, matchID string) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT domain_event_id, aggregate_id, event_type, occurred_on, payload
		FROM match_domain_events
		WHERE aggregate_id = $1
		ORDER BY occurred_on ASC, insert_seq ASC`, matchID)
	if err != nil {
		return nil, fmt.Errorf("postgres eventstore: load: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var (
			evt       domain.Event
			eventType string
			payload   []byte
		)
		if err := rows.Scan(&evt.DomainEventID, &evt.AggregateID, &eventType, &evt.OccurredOn, &payload); err != nil {
			return nil, fmt.Errorf("postgres eventstore: scan: %w", err)
		}
		evt.Type = domain.EventType(eventType)
		if err := decodePayload(&evt, payload); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres eventstore: rows: %w", err)
	}

	// Belt-and-braces: the SQL ORDER BY already guarantees ordering, but
	// a stable re-sort keeps the guarantee independent of the driver.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredOn.Before(events[j].OccurredOn)
	})
	return events, nil
}

// Append durably records every event in the batch inside a single
// transaction: either all of them land, or none do.
func (s *Store) Append(ctx context.Context, matchID string, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres eventstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, evt := range events {
		payload, err := encodePayload(evt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO match_domain_events (domain_event_id, aggregate_id, event_type, occurred_on, payload)
			VALUES ($1, $2, $3, $4, $5)`,
			evt.DomainEventID, matchID, string(evt.Type), evt.OccurredOn, payload)
		if err != nil {
			return fmt.Errorf("postgres eventstore: insert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres eventstore: commit: %w", err)
	}
	return nil
}

// Delete removes every event recorded for matchID.
func (s *Store) Delete(ctx context.Context, matchID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM match_domain_events WHERE aggregate_id = $1`, matchID)
	if err != nil {
		return fmt.Errorf("postgres eventstore: delete: %w", err)
	}
	return nil
}

func encodePayload(evt domain.Event) ([]byte, error) {
	switch evt.Type {
	case domain.GlobalEventAddedType:
		b, err := json.Marshal(evt.GlobalEventAdded)
		if err != nil {
			return nil, fmt.Errorf("postgres eventstore: encode GlobalEventAdded: %w", err)
		}
		return b, nil
	case domain.EventEditedType:
		b, err := json.Marshal(evt.EventEdited)
		if err != nil {
			return nil, fmt.Errorf("postgres eventstore: encode EventEdited: %w", err)
		}
		return b, nil
	default:
		return nil, fmt.Errorf("postgres eventstore: unknown event type %q", evt.Type)
	}
}

func decodePayload(evt *domain.Event, payload []byte) error {
	switch evt.Type {
	case domain.GlobalEventAddedType:
		var p domain.GlobalEventAddedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("postgres eventstore: decode GlobalEventAdded: %w", err)
		}
		evt.GlobalEventAdded = &p
	case domain.EventEditedType:
		var p domain.EventEditedPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return fmt.Errorf("postgres eventstore: decode EventEdited: %w", err)
		}
		evt.EventEdited = &p
	default:
		return fmt.Errorf("postgres eventstore: unknown event type %q", evt.Type)
	}
	return nil
}
