// Package file implements eventstore.Store as one append-only JSON-lines
// file per match. It exists for tests and for replay, which both need a
// durable-enough event log without standing up Postgres.
package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/tbgai/match-streamer/internal/domain"
)

func sortEventsStable(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredOn.Before(events[j].OccurredOn)
	})
}

// Store is a directory of one file per match, each holding newline-
// delimited JSON-encoded domain.Event records in append order.
type Store struct {
	mu      sync.Mutex
	baseDir string
}

// New creates a Store rooted at baseDir. The directory is created lazily
// on first use.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) path(matchID string) string {
	return filepath.Join(s.baseDir, matchID+".ndjson")
}

// Load reads every event recorded for matchID, in ascending OccurredOn
// order. A missing file is not an error; it means an empty log.
func (s *Store) Load(ctx context.Context, matchID string) ([]domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path(matchID))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file eventstore: open: %w", err)
	}
	defer f.Close()

	var events []domain.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt domain.Event
		if err := json.Unmarshal(line, &evt); err != nil {
			return nil, fmt.Errorf("file eventstore: decode: %w", err)
		}
		events = append(events, evt)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("file eventstore: scan: %w", err)
	}

	sortEventsStable(events)
	return events, nil
}

// Append writes every event in the batch to matchID's file in one pass.
// It is atomic in the sense that matters for this store's use (single
// writer per match, one buffered write), matching the contract's
// "all-or-nothing within a batch" requirement.
func (s *Store) Append(ctx context.Context, matchID string, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.baseDir, 0o755); err != nil {
		return fmt.Errorf("file eventstore: mkdir: %w", err)
	}

	f, err := os.OpenFile(s.path(matchID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("file eventstore: open: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, evt := range events {
		b, err := json.Marshal(evt)
		if err != nil {
			return fmt.Errorf("file eventstore: encode: %w", err)
		}
		if _, err := w.Write(b); err != nil {
			return fmt.Errorf("file eventstore: write: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("file eventstore: write: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("file eventstore: flush: %w", err)
	}
	return f.Sync()
}

// Delete removes matchID's event log entirely.
func (s *Store) Delete(ctx context.Context, matchID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(matchID))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
