package eventstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/tbgai/match-streamer/internal/domain"
	filestore "github.com/tbgai/match-streamer/internal/eventstore/file"
	"github.com/tbgai/match-streamer/internal/models"
)

// contractStore is the subset of eventstore.Store the contract tests
// exercise; both implementations satisfy it.
type contractStore interface {
	Load(ctx context.Context, matchID string) ([]domain.Event, error)
	Append(ctx context.Context, matchID string, events []domain.Event) error
	Delete(ctx context.Context, matchID string) error
}

// Only the file-backed store is exercised here without a live database;
// the Postgres implementation satisfies the same interface and should be
// run against these same cases in an environment with POSTGRES_URL set.
func newFileStoreForTest(t *testing.T) contractStore {
	t.Helper()
	return filestore.New(t.TempDir())
}

func sampleEvent(matchID string, offset time.Duration) domain.Event {
	now := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC).Add(offset)
	ev := models.MatchEvent{FeedEventID: 1, MatchID: matchID, TypeID: 1, PeriodID: 1}
	return domain.NewGlobalEventAdded(matchID, ev, now)
}

func TestFileStore_AppendThenLoad_OrdersByOccurredOn(t *testing.T) {
	store := newFileStoreForTest(t)
	ctx := context.Background()
	matchID := "m1"

	later := sampleEvent(matchID, 2*time.Second)
	earlier := sampleEvent(matchID, 0)

	if err := store.Append(ctx, matchID, []domain.Event{later, earlier}); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.Load(ctx, matchID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("want 2 events, got %d", len(got))
	}
	if !got[0].OccurredOn.Equal(earlier.OccurredOn) {
		t.Fatalf("want earlier event first, got %v then %v", got[0].OccurredOn, got[1].OccurredOn)
	}
}

func TestFileStore_Load_EmptyWhenNoEvents(t *testing.T) {
	store := newFileStoreForTest(t)
	got, err := store.Load(context.Background(), "never-appended")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want no events, got %d", len(got))
	}
}

func TestFileStore_Append_IsAtomicAcrossBatch(t *testing.T) {
	store := newFileStoreForTest(t)
	ctx := context.Background()
	matchID := "m2"

	batch := []domain.Event{sampleEvent(matchID, 0), sampleEvent(matchID, time.Second)}
	if err := store.Append(ctx, matchID, batch); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.Load(ctx, matchID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != len(batch) {
		t.Fatalf("want %d events persisted together, got %d", len(batch), len(got))
	}
}

func TestFileStore_Delete_RemovesAllEventsForMatch(t *testing.T) {
	store := newFileStoreForTest(t)
	ctx := context.Background()
	matchID := "m3"

	if err := store.Append(ctx, matchID, []domain.Event{sampleEvent(matchID, 0)}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Delete(ctx, matchID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, err := store.Load(ctx, matchID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("want no events after delete, got %d", len(got))
	}
}

func TestFileStore_Delete_MissingMatchIsNotAnError(t *testing.T) {
	store := newFileStoreForTest(t)
	if err := store.Delete(context.Background(), "does-not-exist"); err != nil {
		t.Fatalf("delete of missing match should be a no-op, got %v", err)
	}
}
