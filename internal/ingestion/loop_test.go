package ingestion

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/domain"
	filestore "github.com/tbgai/match-streamer/internal/eventstore/file"
	"github.com/tbgai/match-streamer/internal/feed"
	"github.com/tbgai/match-streamer/internal/models"
	"github.com/tbgai/match-streamer/internal/projector"
)

type scriptedFeed struct {
	mu      sync.Mutex
	batches [][]models.MatchEvent
	i       int
}

func (f *scriptedFeed) Fetch(ctx context.Context, matchID string) (feed.FetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.i >= len(f.batches) {
		return feed.FetchResult{}, nil
	}
	batch := f.batches[f.i]
	f.i++
	return feed.FetchResult{Events: batch}, nil
}

type memProjections struct {
	mu   sync.Mutex
	rows []models.ReadModelRow
}

func (m *memProjections) UpsertMany(ctx context.Context, rows []models.ReadModelRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, rows...)
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates int
	stopped bool
}

func (p *recordingPublisher) PublishUpdate(ctx context.Context, matchID string, rows any, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates++
	return nil
}

func (p *recordingPublisher) PublishStop(ctx context.Context, matchID string, now time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
	return nil
}

func TestLoop_RunsUntilFinishedAndPublishesStop(t *testing.T) {
	matchID := "m1"
	store := filestore.New(t.TempDir())
	proj := &memProjections{}
	pub := &recordingPublisher{}

	f := &scriptedFeed{batches: [][]models.MatchEvent{
		{{FeedEventID: 1, MatchID: matchID, TypeID: 1, PeriodID: 1}},
		{{FeedEventID: 1, MatchID: matchID, TypeID: 1, PeriodID: 1}, {FeedEventID: 2, MatchID: matchID, TypeID: 30, PeriodID: 2}},
	}}

	loop := &Loop{
		MatchID:      matchID,
		Feed:         f,
		Events:       store,
		Projections:  proj,
		Projector:    projector.New(),
		Publisher:    pub,
		PollInterval: time.Millisecond,
		Logger:       zap.NewNop().Sugar(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !pub.stopped {
		t.Fatal("want stop message published once match finished")
	}
	if pub.updates == 0 {
		t.Fatal("want at least one update published")
	}

	history, err := store.Load(context.Background(), matchID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("want 2 domain events persisted (one per distinct event), got %d", len(history))
	}
	if history[0].Type != domain.GlobalEventAddedType {
		t.Fatalf("want first event to be GlobalEventAdded, got %s", history[0].Type)
	}
}

func TestLoop_StopsWhenContextCancelledBeforeFinish(t *testing.T) {
	matchID := "m2"
	store := filestore.New(t.TempDir())

	loop := &Loop{
		MatchID:      matchID,
		Feed:         &scriptedFeed{},
		Events:       store,
		Projections:  &memProjections{},
		Projector:    projector.New(),
		Publisher:    &recordingPublisher{},
		PollInterval: time.Hour,
		Logger:       zap.NewNop().Sugar(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := loop.Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}
}
