// Command replay reconstructs a match's already-persisted event log at a
// configurable wall-clock speed (C8), publishing exactly as the live
// ingestion loop would.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/config"
	"github.com/tbgai/match-streamer/internal/eventstore/postgres"
	"github.com/tbgai/match-streamer/internal/projector"
	"github.com/tbgai/match-streamer/internal/publisher"
	"github.com/tbgai/match-streamer/internal/replay"
)

func main() {
	matchID := flag.String("match-id", "", "match id to replay (required)")
	speed := flag.Float64("speed", 0, "virtual seconds per real second (0 = use REPLAY_SPEED)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	if *matchID == "" {
		sugar.Fatalw("missing required flag", "flag", "match-id")
	}

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
	history, err := events.Load(ctx, *matchID)
	if err != nil {
		sugar.Fatalw("load event log failed", "match_id", *matchID, "error", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("parse redis url failed", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	pub := publisher.New(publisher.NewRedisBus(redisClient), "matches.")

	runSpeed := cfg.ReplaySpeed
	if *speed > 0 {
		runSpeed = *speed
	}

	runner := &replay.Runner{
		MatchID:      *matchID,
		Events:       history,
		Projector:    projector.New(),
		Publisher:    pub,
		Speed:        runSpeed,
		PushInterval: cfg.ReplayPushInterval,
		Logger:       sugar,
	}

	sugar.Infow("replay starting", "match_id", *matchID, "events", len(history), "speed", runSpeed)
	if err := runner.Run(ctx); err != nil {
		sugar.Fatalw("replay failed", "match_id", *matchID, "error", err)
	}
	sugar.Infow("replay finished", "match_id", *matchID)
}
