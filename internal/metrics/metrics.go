// Package metrics declares the Prometheus collectors shared by the
// ingestion loop, scheduler, replay runner, and fallback normalizer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsAppended counts domain events appended to the event store,
	// labeled by event_type (GlobalEventAdded / EventEdited).
	EventsAppended = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_streamer_events_appended_total",
		Help: "Total domain events appended to the event store.",
	}, []string{"event_type"})

	// CyclesFailed counts ingestion loop cycles that returned a
	// transient or fatal error.
	CyclesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "match_streamer_ingestion_cycles_failed_total",
		Help: "Ingestion loop cycles that errored, labeled by severity.",
	}, []string{"severity"})

	// ActiveMatches tracks how many per-match ingestion tasks are
	// currently running under the scheduler's concurrency bound.
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "match_streamer_active_matches",
		Help: "Number of per-match ingestion tasks currently running.",
	})

	// CycleDuration observes how long one poll/diff/persist/publish
	// cycle took.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "match_streamer_ingestion_cycle_duration_seconds",
		Help:    "Duration of one ingestion loop cycle.",
		Buckets: prometheus.DefBuckets,
	})

	// FallbackEventsSkipped counts fallback-normalizer rows skipped for
	// a missing match, team or player mapping.
	FallbackEventsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_streamer_fallback_events_skipped_total",
		Help: "Fallback-provider events skipped due to an unresolvable match, team or player mapping.",
	})

	// ReplayBatchesPublished counts batches the replay runner has sent.
	ReplayBatchesPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "match_streamer_replay_batches_published_total",
		Help: "Batches of domain events published by the replay runner.",
	})
)
