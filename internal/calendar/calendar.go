// Package calendar defines the fixture-calendar client contract the
// scheduler (C7) uses to discover which matches to stream and when.
package calendar

import (
	"context"
	"time"
)

// Fixture is one scheduled match in a tournament's calendar.
type Fixture struct {
	MatchID string
	Kickoff time.Time
}

// Client fetches the fixture calendar for a tournament.
type Client interface {
	FetchCalendar(ctx context.Context, tournamentID string) ([]Fixture, error)
}
