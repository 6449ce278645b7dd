// Package projectionstore implements the upsert-by-event-id read model
// store (C2) on top of pgxpool.
package projectionstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS match_read_model (
	event_id   BIGINT PRIMARY KEY,
	match_id   TEXT NOT NULL,
	event      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_match_read_model_match ON match_read_model (match_id);
`

// Store is a pgxpool-backed projectionstore.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.SugaredLogger
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *zap.SugaredLogger) *Store {
	return &Store{pool: pool, logger: logger}
}

// EnsureSchema creates the backing table if it does not already exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("projectionstore: ensure schema: %w", err)
	}
	return nil
}

// UpsertMany writes every row in one transaction, using a native upsert
// so a row already present for an event_id is replaced rather than
// duplicated. Rows sharing an event_id within the batch are deduplicated
// first, keeping the last occurrence (last writer wins), and a warning
// is logged for any duplicate dropped.
func (s *Store) UpsertMany(ctx context.Context, rows []models.ReadModelRow) error {
	if len(rows) == 0 {
		return nil
	}

	deduped := dedupeByEventID(rows, s.logger)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("projectionstore: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, row := range deduped {
		payload, err := json.Marshal(row.Event)
		if err != nil {
			return fmt.Errorf("projectionstore: encode: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO match_read_model (event_id, match_id, event, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (event_id) DO UPDATE
			SET match_id = EXCLUDED.match_id,
				event = EXCLUDED.event,
				updated_at = EXCLUDED.updated_at`,
			row.EventID, row.MatchID, payload, row.UpdatedAt)
		if err != nil {
			return fmt.Errorf("projectionstore: upsert: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("projectionstore: commit: %w", err)
	}
	return nil
}

func dedupeByEventID(rows []models.ReadModelRow, logger *zap.SugaredLogger) []models.ReadModelRow {
	byID := make(map[int64]models.ReadModelRow, len(rows))
	order := make([]int64, 0, len(rows))
	for _, row := range rows {
		if _, exists := byID[row.EventID]; !exists {
			order = append(order, row.EventID)
		} else if logger != nil {
			logger.Warnw("duplicate event_id in upsert batch, keeping last", "event_id", row.EventID)
		}
		byID[row.EventID] = row
	}
	out := make([]models.ReadModelRow, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}

// LoadByMatch returns every read-model row for a single match.
func (s *Store) LoadByMatch(ctx context.Context, matchID string) ([]models.ReadModelRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, match_id, event, updated_at
		FROM match_read_model WHERE match_id = $1`, matchID)
	if err != nil {
		return nil, fmt.Errorf("projectionstore: load by match: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// LoadByIds returns the read-model rows matching any of the given event
// ids. Unknown ids are silently omitted from the result.
func (s *Store) LoadByIds(ctx context.Context, eventIDs []int64) ([]models.ReadModelRow, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT event_id, match_id, event, updated_at
		FROM match_read_model WHERE event_id = ANY($1)`, eventIDs)
	if err != nil {
		return nil, fmt.Errorf("projectionstore: load by ids: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanRows(rows rowScanner) ([]models.ReadModelRow, error) {
	var out []models.ReadModelRow
	for rows.Next() {
		var (
			row     models.ReadModelRow
			payload []byte
		)
		if err := rows.Scan(&row.EventID, &row.MatchID, &payload, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("projectionstore: scan: %w", err)
		}
		if err := json.Unmarshal(payload, &row.Event); err != nil {
			return nil, fmt.Errorf("projectionstore: decode: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("projectionstore: rows: %w", err)
	}
	return out, nil
}
