// Command fallback runs the alternate-provider normalizer (C9) over a
// single page-source file: repair, parse, normalize, then persist and
// publish the resulting rows exactly as the live pipeline would.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/config"
	"github.com/tbgai/match-streamer/internal/fallback"
	"github.com/tbgai/match-streamer/internal/idmap"
	"github.com/tbgai/match-streamer/internal/projectionstore"
	"github.com/tbgai/match-streamer/internal/publisher"
)

func main() {
	matchID := flag.String("match-id", "", "match id the page source belongs to (required)")
	sourcePath := flag.String("source", "", "path to the raw page-source file (required)")
	flag.Parse()

	logger, _ := zap.NewProduction()
	defer logger.Sync()
	sugar := logger.Sugar()

	if *matchID == "" || *sourcePath == "" {
		sugar.Fatalw("missing required flags", "match-id", *matchID, "source", *sourcePath)
	}

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalw("config load failed", "error", err)
	}

	raw, err := os.ReadFile(*sourcePath)
	if err != nil {
		sugar.Fatalw("read source file failed", "path", *sourcePath, "error", err)
	}

	doc, err := fallback.RepairAndParse(string(raw))
	if err != nil {
		sugar.Fatalw("repair and parse failed", "error", err)
	}

	persister := idmap.NewFilePersister(cfg.FallbackMappingPath)
	ids, err := idmap.New(persister)
	if err != nil {
		sugar.Fatalw("load id mappings failed", "error", err)
	}

	if _, err := ids.GetOrCreate(idmap.NamespaceMatch, *matchID); err != nil {
		sugar.Fatalw("mint match mapping failed", "match_id", *matchID, "error", err)
	}

	normalizer := fallback.New(ids, sugar)
	result, err := normalizer.Normalize(doc, *matchID, time.Now().UTC())
	if err != nil {
		sugar.Fatalw("normalize failed", "match_id", *matchID, "error", err)
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		sugar.Fatalw("postgres connect failed", "error", err)
	}
	defer pool.Close()

	store := projectionstore.New(pool, sugar)
	if err := store.EnsureSchema(ctx); err != nil {
		sugar.Fatalw("ensure schema failed", "error", err)
	}
	if err := store.UpsertMany(ctx, result.Rows); err != nil {
		sugar.Fatalw("upsert rows failed", "error", err)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		sugar.Fatalw("parse redis url failed", "error", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	pub := publisher.New(publisher.NewRedisBus(redisClient), "matches.")

	if err := pub.PublishUpdate(ctx, *matchID, result.Rows, time.Now().UTC()); err != nil {
		sugar.Warnw("publish update failed", "error", err)
	}

	sugar.Infow("fallback normalization complete",
		"match_id", *matchID,
		"rows", len(result.Rows),
		"lineups", len(result.Lineups),
		"skipped", result.Skipped)
}
