package replay

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/tbgai/match-streamer/internal/domain"
	"github.com/tbgai/match-streamer/internal/models"
	"github.com/tbgai/match-streamer/internal/projector"
)

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

func noSleep(time.Duration) {}

func TestRun_ReplaysAllEventsThenStops(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	events := []domain.Event{
		domain.NewGlobalEventAdded("m1", models.MatchEvent{FeedEventID: 1}, start),
		domain.NewGlobalEventAdded("m1", models.MatchEvent{FeedEventID: 2}, start.Add(time.Second)),
		domain.NewGlobalEventAdded("m1", models.MatchEvent{FeedEventID: 3}, start.Add(90*time.Minute)),
	}

	pub := &recordingPublisher{}
	r := &Runner{
		MatchID:      "m1",
		Events:       events,
		Projector:    projector.New(),
		Publisher:    pub,
		Speed:        1000,
		PushInterval: time.Second,
		sleep:        noSleep,
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if !pub.stopped {
		t.Fatal("want stop published once the log is exhausted")
	}
	if pub.updates == 0 {
		t.Fatal("want at least one update published")
	}
}

func TestRun_FlushesEverythingAtTwoHourCutoff(t *testing.T) {
	start := time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)
	// The virtual clock starts at the first event. The second event lies
	// 10 hours later, past the 2-hour cutoff, so the second push reaches
	// the cutoff and flushes it before its OccurredOn arrives.
	events := []domain.Event{
		domain.NewGlobalEventAdded("m1", models.MatchEvent{FeedEventID: 1}, start),
		domain.NewGlobalEventAdded("m1", models.MatchEvent{FeedEventID: 2}, start.Add(10*time.Hour)),
	}

	pub := &recordingPublisher{}
	r := &Runner{
		MatchID:      "m1",
		Events:       events,
		Projector:    projector.New(),
		Publisher:    pub,
		Speed:        1,
		PushInterval: time.Hour,
		sleep:        noSleep,
	}

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !pub.stopped {
		t.Fatal("want the cutoff to force a final flush and stop")
	}
}

func TestRun_EmptyLogPublishesStopImmediately(t *testing.T) {
	pub := &recordingPublisher{}
	r := &Runner{
		MatchID:   "m1",
		Events:    nil,
		Projector: projector.New(),
		Publisher: pub,
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !pub.stopped {
		t.Fatal("want stop published for an empty log")
	}
}
