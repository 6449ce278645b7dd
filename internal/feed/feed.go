// Package feed defines the upstream live-data client contract. Token
// minting and the feed's own transport details are external
// collaborators; this package only shapes the fetch call and its
// result.
package feed

import (
	"context"

	"github.com/tbgai/match-streamer/internal/models"
)

// FetchResult is one poll's worth of raw events for a match.
type FetchResult struct {
	Events []models.MatchEvent
}

// Client fetches the current snapshot of events for a match from the
// upstream provider.
type Client interface {
	Fetch(ctx context.Context, matchID string) (FetchResult, error)
}
