// Command scheduler drives live ingestion (C7): it polls the fixture
// calendar, launches one ingestion.Loop per match within the streaming
// window, and keeps them bounded by a concurrency semaphore.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tbgai/match-streamer/internal/calendar"
	"github.com/tbgai/match-streamer/internal/config"
	"github.com/tbgai/match-streamer/internal/eventstore/postgres"
	"github.com/tbgai/match-streamer/internal/feed"
	"github.com/tbgai/match-streamer/internal/ingestion"
	"github.com/tbgai/match-streamer/internal/projector"
	"github.com/tbgai/match-streamer/internal/projectionstore"
	"github.com/tbgai/match-streamer/internal/publisher"
	"github.com/tbgai/match-streamer/internal/scheduler"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("config load failed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("postgres connect failed", "error", err)
	}
	defer pool.Close()

	events := postgres.New(pool)
	if err := events.EnsureSchema(ctx); err != nil {
		sugar.Fatalw("ensure event store schema failed", "error", err)
	}
	projections := projectionstore.New(pool, sugar)
	if err := projections.EnsureSchema(ctx); err != nil {
		sugar.Fatalw("ensure projection schema failed", "error", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("parse redis url failed", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	pub := publisher.New(publisher.NewRedisBus(redisClient), "matches.")

	feedClient := feed.NewHTTPClient(cfg.FeedBaseURL)
	calendarClient := calendar.NewHTTPClient(cfg.CalendarBaseURL)

	runTask := func(taskCtx context.Context, matchID string) error {
		loop := &ingestion.Loop{
			MatchID:      matchID,
			Feed:         feedClient,
			Events:       events,
			Projections:  projections,
			Projector:    projector.New(),
			Publisher:    pub,
			PollInterval: cfg.PollInterval,
			Logger:       sugar,
		}
		return loop.Run(taskCtx)
	}

	sched := &scheduler.Scheduler{
		Calendar:          calendarClient,
		Run:               runTask,
		Logger:            sugar,
		StreamLeadTime:    cfg.StreamLeadTime,
		LateStartWindow:   cfg.LateStartWindow,
		CalendarLookahead: cfg.CalendarLookahead,
		MaxConcurrent:     int64(cfg.MaxConcurrentMatches),
	}

	tournamentIDs := tournamentIDsFromEnv()

	var wg sync.WaitGroup
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	// Multiple tournaments' calendars are fetched and scheduled
	// concurrently; one slow or failing tournament never delays the
	// others.
	pollCalendars := func() {
		g, gctx := errgroup.WithContext(ctx)
		for _, tournamentID := range tournamentIDs {
			tournamentID := tournamentID
			g.Go(func() error {
				if err := sched.ScheduleTournament(gctx, tournamentID, &wg); err != nil {
					sugar.Errorw("schedule tournament failed", "tournament_id", tournamentID, "error", err)
				}
				return nil
			})
		}
		_ = g.Wait()
	}

	pollCalendars()
	sugar.Infow("scheduler running", "tournaments", tournamentIDs)

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case <-ticker.C:
			pollCalendars()
		}
	}
}

func tournamentIDsFromEnv() []string {
	raw := os.Getenv("TOURNAMENT_IDS")
	if raw == "" {
		return nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}
