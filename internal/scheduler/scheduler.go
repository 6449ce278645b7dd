// Package scheduler implements the fixture-calendar-driven match task
// launcher (C7): it fetches a tournament's calendar, decides which
// fixtures are in the streaming window, and launches a bounded number of
// concurrent per-match ingestion tasks.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/tbgai/match-streamer/internal/calendar"
)

// lateStartWindow is how far past kickoff a match can be before the
// scheduler gives up on starting it at all. Fixed at 180 minutes per the
// project's resolution of an upstream inconsistency between 90 and 180
// minutes observed across the original source.
const lateStartWindow = 180 * time.Minute

// TaskRunner launches and runs one match's ingestion task until it
// finishes or ctx is cancelled.
type TaskRunner func(ctx context.Context, matchID string) error

// Scheduler fetches a calendar and launches bounded-concurrency tasks
// for fixtures within the streaming window.
type Scheduler struct {
	Calendar calendar.Client
	Run      TaskRunner
	Logger   *zap.SugaredLogger

	StreamLeadTime    time.Duration
	LateStartWindow   time.Duration
	CalendarLookahead time.Duration
	MaxConcurrent     int64

	Now func() time.Time

	sem     *semaphore.Weighted
	semOnce sync.Once
}

func (s *Scheduler) semaphoreOnce() *semaphore.Weighted {
	s.semOnce.Do(func() {
		max := s.MaxConcurrent
		if max <= 0 {
			max = 16
		}
		s.sem = semaphore.NewWeighted(max)
	})
	return s.sem
}

func (s *Scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ScheduleTournament fetches tournamentID's calendar and launches a
// goroutine per fixture that is within the streaming window, bounded by
// the scheduler's concurrency semaphore. It returns once every eligible
// fixture has been launched (not once they've finished); launched tasks
// run under ctx and are tracked by wg if one is supplied.
func (s *Scheduler) ScheduleTournament(ctx context.Context, tournamentID string, wg *sync.WaitGroup) error {
	fixtures, err := s.Calendar.FetchCalendar(ctx, tournamentID)
	if err != nil {
		return err
	}

	now := s.now()
	lookahead := s.CalendarLookahead
	if lookahead == 0 {
		lookahead = 7 * 24 * time.Hour
	}
	leadTime := s.StreamLeadTime
	if leadTime == 0 {
		leadTime = 10 * time.Minute
	}
	lateWindow := s.LateStartWindow
	if lateWindow == 0 {
		lateWindow = lateStartWindow
	}

	for _, fx := range fixtures {
		if fx.Kickoff.After(now.Add(lookahead)) {
			s.logSkip(fx.MatchID, "kickoff beyond calendar lookahead window")
			continue
		}
		if now.After(fx.Kickoff.Add(lateWindow)) {
			s.logSkip(fx.MatchID, "too far past kickoff to start streaming")
			continue
		}

		streamStart := fx.Kickoff.Add(-leadTime)
		delay := time.Duration(0)
		if streamStart.After(now) {
			delay = streamStart.Sub(now)
		}

		s.launch(ctx, fx.MatchID, delay, wg)
	}

	return nil
}

func (s *Scheduler) logSkip(matchID, reason string) {
	if s.Logger != nil {
		s.Logger.Infow("skipping fixture", "match_id", matchID, "reason", reason)
	}
}

func (s *Scheduler) launch(ctx context.Context, matchID string, delay time.Duration, wg *sync.WaitGroup) {
	if wg != nil {
		wg.Add(1)
	}
	go func() {
		if wg != nil {
			defer wg.Done()
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}

		sem := s.semaphoreOnce()
		if err := sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer sem.Release(1)

		if err := s.Run(ctx, matchID); err != nil && s.Logger != nil {
			s.Logger.Errorw("match task ended with error", "match_id", matchID, "error", err)
		}
	}()
}
