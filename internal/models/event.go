// Package models defines the data shapes shared across the ingestion
// pipeline: raw feed events, match events, and read-model rows.
package models

import "time"

// Qualifier is a single Opta-style qualifier attached to a MatchEvent.
// Value is nil when the qualifier carries no value (a boolean flag).
type Qualifier struct {
	QualifierID int     `json:"qualifierId"`
	Value       *string `json:"value,omitempty"`
}

// QualifiersEqual reports whether two qualifier lists hold the same
// multiset of (qualifier_id, value) pairs. Order does not matter; a
// repeated pair must appear the same number of times in both lists. A
// nil Value compares equal to an empty string.
func QualifiersEqual(a, b []Qualifier) bool {
	if len(a) != len(b) {
		return false
	}
	type pair struct {
		id    int
		value string
	}
	index := func(qs []Qualifier) map[pair]int {
		m := make(map[pair]int, len(qs))
		for _, q := range qs {
			p := pair{id: q.QualifierID}
			if q.Value != nil {
				p.value = *q.Value
			}
			m[p]++
		}
		return m
	}
	am, bm := index(a), index(b)
	if len(am) != len(bm) {
		return false
	}
	for k, n := range am {
		if bm[k] != n {
			return false
		}
	}
	return true
}

// MatchEvent is the canonical, feed-agnostic representation of a single
// match event (a pass, a shot, a card, and so on). FeedEventID is the
// immutable identifier assigned by the upstream provider (the feed's
// global "id"); it is never compared when diffing two revisions of the
// same event. LocalEventID (the feed's local "eventId") is likewise
// immutable and never diffed — it only orders an event within its
// provider-local sequence.
type MatchEvent struct {
	FeedEventID  int         `json:"feedEventId"`
	LocalEventID int         `json:"localEventId"`
	MatchID      string      `json:"matchId"`
	TypeID       int         `json:"typeId"`
	PeriodID     int         `json:"periodId"`
	TimeMin      int         `json:"timeMin"`
	TimeSec      int         `json:"timeSec"`
	TeamID       string      `json:"teamId"`
	PlayerID     *string     `json:"playerId,omitempty"`
	PlayerName   *string     `json:"playerName,omitempty"`
	OutcomeID    *int        `json:"outcomeId,omitempty"`
	X            *float64    `json:"x,omitempty"`
	Y            *float64    `json:"y,omitempty"`
	TimeStamp    *string     `json:"timeStamp,omitempty"`
	LastModified int64       `json:"lastModified"`
	Qualifiers   []Qualifier `json:"qualifiers,omitempty"`
}

// Team is a roster-bearing side in a match.
type Team struct {
	TeamID string `json:"teamId"`
	Name   string `json:"name"`
}

// Player belongs to a Team for a given match.
type Player struct {
	PlayerID  string `json:"playerId"`
	TeamID    string `json:"teamId"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	ShirtNum  int    `json:"shirtNumber"`
}

// ReadModelRow is one upserted row of the projection store: the current,
// flattened state of a single MatchEvent as of the last applied domain
// event. EventID is the feed's own event id (MatchEvent.FeedEventID) and
// is the projection store's upsert key — it must stay stable across a
// GlobalEventAdded and any later EventEdited for the same feed event.
type ReadModelRow struct {
	EventID   int64      `json:"eventId"`
	MatchID   string     `json:"matchId"`
	Event     MatchEvent `json:"event"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Lineup is the starting eleven (and formation shape) for one team in one
// match, as extracted by the fallback normalizer.
type Lineup struct {
	TeamID             string              `json:"teamId"`
	FormationID        int                 `json:"formationId"`
	FormationName      string              `json:"formationName"`
	PlayerIDs          []string            `json:"playerIds"`
	FormationPositions []FormationPosition `json:"formationPositions"`
	CaptainID          string              `json:"captainId"`
}

// FormationPosition is one player's pitch position within a Lineup.
type FormationPosition struct {
	Vertical   float64 `json:"vertical"`
	Horizontal float64 `json:"horizontal"`
}
