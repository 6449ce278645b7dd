// Package ingestion implements the per-match ingestion loop (C5): poll,
// diff, append, project, upsert, publish, clear-uncommitted, sleep —
// repeated until the match finishes or the context is cancelled.
package ingestion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/aggregator"
	"github.com/tbgai/match-streamer/internal/domain"
	"github.com/tbgai/match-streamer/internal/eventstore"
	"github.com/tbgai/match-streamer/internal/feed"
	"github.com/tbgai/match-streamer/internal/ingerr"
	"github.com/tbgai/match-streamer/internal/metrics"
	"github.com/tbgai/match-streamer/internal/models"
)

// Clock abstracts time.Now so tests can control cycle timestamps.
type Clock func() time.Time

// ProjectionSink is the narrow slice of projectionstore.Store the loop
// needs, kept as an interface so tests can supply an in-memory fake
// instead of a live Postgres pool.
type ProjectionSink interface {
	UpsertMany(ctx context.Context, rows []models.ReadModelRow) error
}

// ReadModelProjector is the narrow slice of projector.Projector the loop
// needs.
type ReadModelProjector interface {
	ProjectAll(events []domain.Event, now time.Time) []models.ReadModelRow
	CurrentState(matchID string) []models.ReadModelRow
}

// Publisher is the narrow slice of publisher.Publisher the loop needs.
type Publisher interface {
	PublishUpdate(ctx context.Context, matchID string, rows any, now time.Time) error
	PublishStop(ctx context.Context, matchID string, now time.Time) error
}

// Loop drives a single match's Aggregate through repeated poll/diff/
// persist/publish cycles. It is never shared across matches and is
// safe to run as one goroutine per match.
type Loop struct {
	MatchID string

	Feed        feed.Client
	Events      eventstore.Store
	Projections ProjectionSink
	Projector   ReadModelProjector
	Publisher   Publisher

	PollInterval time.Duration
	Now          Clock

	Logger *zap.SugaredLogger
}

// Run loads any previously persisted history, replays it into a fresh
// Aggregate, then cycles until the match is Finished or ctx is
// cancelled. It returns the error from the cycle that stopped it, if
// any (a cancelled context returns nil).
func (l *Loop) Run(ctx context.Context) error {
	history, err := l.Events.Load(ctx, l.MatchID)
	if err != nil {
		return ingerr.Fatal(err)
	}
	agg := aggregator.Restore(l.MatchID, history)

	metrics.ActiveMatches.Inc()
	defer metrics.ActiveMatches.Dec()

	for {
		if agg.Finished {
			return l.finish(ctx)
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		cycleErr := l.cycle(ctx, agg)
		if cycleErr != nil {
			l.logCycleError(cycleErr)
			if ingerr.IsFatal(cycleErr) {
				return cycleErr
			}
			// Transient: uncommitted events (if any were recorded before
			// the failure) stay on the aggregate and are appended by the
			// next cycle. The aggregate already holds their effect, so the
			// next diff does not emit them a second time.
		}

		if agg.Finished {
			return l.finish(ctx)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(l.PollInterval):
		}
	}
}

// cycle performs exactly one fetch/diff/append/project/upsert/publish
// pass. Append always precedes upsert, which always precedes publish,
// matching the ordering guarantee in the contract.
func (l *Loop) cycle(ctx context.Context, agg *aggregator.Aggregate) error {
	start := time.Now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	result, err := l.Feed.Fetch(ctx, l.MatchID)
	if err != nil {
		return ingerr.Transient(err)
	}

	now := l.now()
	agg.IngestSnapshot(result.Events, now)

	uncommitted := agg.Uncommitted()
	if len(uncommitted) == 0 {
		return nil
	}

	if err := l.Events.Append(ctx, l.MatchID, uncommitted); err != nil {
		return ingerr.Transient(err)
	}
	for _, evt := range uncommitted {
		metrics.EventsAppended.WithLabelValues(string(evt.Type)).Inc()
	}

	rows := l.Projector.ProjectAll(uncommitted, now)
	if len(rows) > 0 {
		if err := l.Projections.UpsertMany(ctx, rows); err != nil {
			return ingerr.Transient(err)
		}
	}

	currentState := l.Projector.CurrentState(l.MatchID)
	if err := l.Publisher.PublishUpdate(ctx, l.MatchID, currentState, now); err != nil {
		// Publishing is at-least-once and best-effort relative to
		// durability: the data is already safely persisted, so a publish
		// failure is logged rather than treated as fatal. It is not
		// retried; the next cycle that records changes publishes the
		// full current state again.
		l.Logger.Warnw("publish update failed", "match_id", l.MatchID, "error", err)
	}

	// Only clear uncommitted after a successful append: if append fails
	// above we return before reaching here, and the retained events are
	// appended by the next cycle.
	agg.ClearUncommitted()
	return nil
}

func (l *Loop) finish(ctx context.Context) error {
	if err := l.Publisher.PublishStop(ctx, l.MatchID, l.now()); err != nil {
		l.Logger.Warnw("publish stop failed", "match_id", l.MatchID, "error", err)
	}
	return nil
}

func (l *Loop) logCycleError(err error) {
	if l.Logger == nil {
		return
	}
	severity := "transient"
	if ingerr.IsFatal(err) {
		severity = "fatal"
	}
	metrics.CyclesFailed.WithLabelValues(severity).Inc()
	l.Logger.Errorw("ingestion cycle failed", "match_id", l.MatchID, "severity", severity, "error", err)
}

func (l *Loop) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}
