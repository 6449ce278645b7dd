// Package replay implements deterministic historical reconstruction
// (C8): it replays a match's already-persisted domain event log at a
// configurable wall-clock speed, feeding a Projector and Publisher
// exactly as the live ingestion loop would, minus the live feed.
package replay

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/domain"
	"github.com/tbgai/match-streamer/internal/metrics"
	"github.com/tbgai/match-streamer/internal/models"
)

// cutoff bounds how much virtual time a single replay run models before
// it gives up waiting for further events and flushes everything at
// once: a match's post-final-whistle edit window is treated as a single
// atomic burst rather than paced out second by second.
const cutoff = 2 * time.Hour

// ReadModelProjector is the narrow slice of projector.Projector replay
// needs.
type ReadModelProjector interface {
	ProjectAll(events []domain.Event, now time.Time) []models.ReadModelRow
	CurrentState(matchID string) []models.ReadModelRow
}

// Publisher is the narrow slice of publisher.Publisher replay needs.
type Publisher interface {
	PublishUpdate(ctx context.Context, matchID string, rows any, now time.Time) error
	PublishStop(ctx context.Context, matchID string, now time.Time) error
}

// Runner replays one match's domain event log.
type Runner struct {
	MatchID string
	Events  []domain.Event // ascending OccurredOn, as loaded from the event store

	Projector ReadModelProjector
	Publisher Publisher

	Speed        float64       // virtual seconds elapsed per real second
	PushInterval time.Duration // virtual time advanced per push; the wall-clock sleep is PushInterval/Speed

	Logger *zap.SugaredLogger

	sleep func(d time.Duration) // overridable for tests
}

// Run drives the replay to completion: sleeping PushInterval/Speed
// between pushes, advancing a virtual clock from the first event's
// OccurredOn, selecting the prefix of remaining events whose
// OccurredOn has arrived, projecting and publishing them, and repeating
// until the log is exhausted or the 2-hour virtual cutoff is reached —
// at which point every remaining event is flushed in one final batch.
func (r *Runner) Run(ctx context.Context) error {
	if len(r.Events) == 0 {
		return r.Publisher.PublishStop(ctx, r.MatchID, r.now())
	}

	sleep := r.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	speed := r.Speed
	if speed <= 0 {
		speed = 1.0
	}
	pushInterval := r.PushInterval
	if pushInterval <= 0 {
		pushInterval = 5 * time.Second
	}

	virtualStart := r.Events[0].OccurredOn
	remaining := r.Events
	var elapsed time.Duration

	for len(remaining) > 0 {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		sleepFor := time.Duration(float64(pushInterval) / speed)
		sleep(sleepFor)
		elapsed += time.Duration(float64(pushInterval))

		virtualNow := virtualStart.Add(elapsed)
		isEOG := elapsed >= cutoff

		var batch []domain.Event
		if isEOG {
			batch, remaining = remaining, nil
		} else {
			i := 0
			for i < len(remaining) && !remaining[i].OccurredOn.After(virtualNow) {
				i++
			}
			batch, remaining = remaining[:i], remaining[i:]
		}

		if len(batch) == 0 {
			continue
		}

		r.Projector.ProjectAll(batch, r.now())
		currentState := r.Projector.CurrentState(r.MatchID)
		metrics.ReplayBatchesPublished.Inc()

		if len(remaining) == 0 {
			if err := r.Publisher.PublishUpdate(ctx, r.MatchID, currentState, r.now()); err != nil {
				r.logWarn("replay: publish final update failed", err)
			}
			return r.Publisher.PublishStop(ctx, r.MatchID, r.now())
		}
		if err := r.Publisher.PublishUpdate(ctx, r.MatchID, currentState, r.now()); err != nil {
			r.logWarn("replay: publish update failed", err)
		}
	}

	return r.Publisher.PublishStop(ctx, r.MatchID, r.now())
}

func (r *Runner) now() time.Time { return time.Now().UTC() }

func (r *Runner) logWarn(msg string, err error) {
	if r.Logger != nil {
		r.Logger.Warnw(msg, "match_id", r.MatchID, "error", err)
	}
}
