package fallback

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/idmap"
	"github.com/tbgai/match-streamer/internal/metrics"
	"github.com/tbgai/match-streamer/internal/models"
)

// Normalizer turns one parsed page-source document into read-model rows
// and lineups, remapping every external id it encounters through an
// idmap.Store.
type Normalizer struct {
	ids    *idmap.Store
	logger *zap.SugaredLogger
}

// New creates a Normalizer over an id mapping store.
func New(ids *idmap.Store, logger *zap.SugaredLogger) *Normalizer {
	return &Normalizer{ids: ids, logger: logger}
}

// Result is everything one Normalize pass produces.
type Result struct {
	Rows    []models.ReadModelRow
	Lineups []models.Lineup
	Skipped int
}

// Normalize runs the full pipeline over an already-repaired page-source
// document: roster self-healing, then per-event projection (skipping
// events whose player mapping cannot be resolved), then lineup
// extraction.
func (n *Normalizer) Normalize(doc map[string]any, matchID string, now time.Time) (Result, error) {
	homeTeam, _ := doc[keyHome].(map[string]any)
	awayTeam, _ := doc[keyAway].(map[string]any)
	nameDict, _ := doc[keyPlayerNameDict].(map[string]any)

	if err := n.healRoster(homeTeam, nameDict); err != nil {
		return Result{}, fmt.Errorf("fallback: heal home roster: %w", err)
	}
	if err := n.healRoster(awayTeam, nameDict); err != nil {
		return Result{}, fmt.Errorf("fallback: heal away roster: %w", err)
	}

	rawEvents, _ := doc[keyEvents].([]any)
	var rows []models.ReadModelRow
	skipped := 0
	for _, raw := range rawEvents {
		evMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		row, err := n.convertEvent(evMap, matchID, now)
		if err != nil {
			skipped++
			metrics.FallbackEventsSkipped.Inc()
			if re, ok := err.(*rowError); ok && re.fatal {
				n.logger.Errorw("dropping fallback event: unresolvable match/team mapping", "error", err)
			} else {
				n.logger.Warnw("skipping fallback event with unresolved player mapping", "error", err)
			}
			continue
		}
		rows = append(rows, row)
	}

	var lineups []models.Lineup
	if lu, ok := n.extractLineup(homeTeam); ok {
		lineups = append(lineups, lu)
	}
	if lu, ok := n.extractLineup(awayTeam); ok {
		lineups = append(lineups, lu)
	}

	return Result{Rows: rows, Lineups: lineups, Skipped: skipped}, nil
}

// healRoster extracts the starting lineup's player ids from
// formations[0], checks each against the page source's player-name
// dictionary, and mints an internal player mapping for any listed player
// not already known. It reads no jersey numbers and writes no player
// record; only the id mapping is extended.
func (n *Normalizer) healRoster(team map[string]any, nameDict map[string]any) error {
	if team == nil {
		return nil
	}
	formations, _ := team[keyFormations].([]any)
	if len(formations) == 0 {
		return nil
	}
	formation, _ := formations[0].(map[string]any)
	playerIDs := toStringSlice(formation[keyPlayerIDs])

	for _, wsPlayerID := range playerIDs {
		if wsPlayerID == "" {
			continue
		}
		if _, ok := nameDict[wsPlayerID]; !ok {
			// The page source itself has no name for this id; nothing to
			// heal against, skip it rather than mint a mapping we cannot
			// attach a name to.
			continue
		}
		if _, err := n.ids.GetOrCreate(idmap.NamespacePlayer, wsPlayerID); err != nil {
			return err
		}
	}
	return nil
}

// rowError classifies why convertEvent dropped a row: fatal for a
// missing match/team mapping (the row cannot be attributed to a side at
// all), recoverable for a missing player mapping (the row is still
// attributable, just anonymous).
type rowError struct {
	fatal bool
	err   error
}

func (e *rowError) Error() string { return e.err.Error() }

// convertEvent maps one raw event into a ReadModelRow. A missing match
// or team mapping is fatal for the row; a missing player mapping is
// recoverable. Both drop the row, but the caller logs them at different
// severities.
func (n *Normalizer) convertEvent(raw map[string]any, matchID string, now time.Time) (models.ReadModelRow, error) {
	internalMatchID, ok := n.ids.Lookup(idmap.NamespaceMatch, matchID)
	if !ok {
		return models.ReadModelRow{}, &rowError{fatal: true, err: fmt.Errorf("no match mapping for %q", matchID)}
	}

	wsTeamID, _ := raw[keyTeamID].(string)
	teamID, ok := n.ids.Lookup(idmap.NamespaceTeam, wsTeamID)
	if !ok {
		return models.ReadModelRow{}, &rowError{fatal: true, err: fmt.Errorf("no team mapping for %q", wsTeamID)}
	}

	ev := models.MatchEvent{
		MatchID: internalMatchID,
		TeamID:  teamID,
	}

	if wsPlayerID, ok := raw["playerId"].(string); ok && wsPlayerID != "" {
		playerID, ok := n.ids.Lookup(idmap.NamespacePlayer, wsPlayerID)
		if !ok {
			return models.ReadModelRow{}, &rowError{fatal: false, err: fmt.Errorf("no player mapping for %q", wsPlayerID)}
		}
		ev.PlayerID = &playerID
	}

	if feedID, ok := raw["id"].(float64); ok {
		ev.FeedEventID = int(feedID)
	}
	if typeID, ok := raw["typeId"].(float64); ok {
		ev.TypeID = int(typeID)
	}
	if periodID, ok := raw["periodId"].(float64); ok {
		ev.PeriodID = int(periodID)
	}

	ev.Qualifiers = transformQualifiers(raw["qualifiers"])

	return models.ReadModelRow{
		EventID:   int64(ev.FeedEventID),
		MatchID:   internalMatchID,
		Event:     ev,
		UpdatedAt: now,
	}, nil
}

// transformQualifiers reshapes the alternate provider's qualifier
// encoding {"type":{"value":id}, "value":val} into the canonical
// {qualifierId, value} shape.
func transformQualifiers(raw any) []models.Qualifier {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]models.Qualifier, 0, len(list))
	for _, item := range list {
		q, ok := item.(map[string]any)
		if !ok {
			continue
		}
		typeMap, _ := q["type"].(map[string]any)
		idFloat, _ := typeMap["value"].(float64)

		var valuePtr *string
		if v, ok := q["value"].(string); ok {
			valuePtr = &v
		}
		out = append(out, models.Qualifier{QualifierID: int(idFloat), Value: valuePtr})
	}
	return out
}

// extractLineup builds a Lineup from a team's formations[0], filtering
// out player ids whose formationSlot is zero (not part of the starting
// shape), and remapping surviving ids through the player namespace.
func (n *Normalizer) extractLineup(team map[string]any) (models.Lineup, bool) {
	if team == nil {
		return models.Lineup{}, false
	}
	formations, _ := team[keyFormations].([]any)
	if len(formations) == 0 {
		return models.Lineup{}, false
	}
	formation, _ := formations[0].(map[string]any)

	wsTeamID, _ := team[keyTeamID].(string)
	teamID, _ := n.ids.Lookup(idmap.NamespaceTeam, wsTeamID)

	playerIDs := toStringSlice(formation[keyPlayerIDs])
	slots := toStringSlice(formation[keyFormationSlots])

	lineup := models.Lineup{
		TeamID:        teamID,
		FormationName: stringField(formation, keyFormationName),
	}
	if fid, ok := formation[keyFormationID].(float64); ok {
		lineup.FormationID = int(fid)
	}
	if captain, ok := formation[keyCaptainPlayerID].(string); ok {
		if mapped, ok := n.ids.Lookup(idmap.NamespacePlayer, captain); ok {
			lineup.CaptainID = mapped
		}
	}

	for i, wsPlayerID := range playerIDs {
		if i < len(slots) {
			if slot, err := strconv.Atoi(slots[i]); err == nil && slot == 0 {
				continue
			}
		}
		mapped, ok := n.ids.Lookup(idmap.NamespacePlayer, wsPlayerID)
		if !ok {
			mapped = wsPlayerID
		}
		lineup.PlayerIDs = append(lineup.PlayerIDs, mapped)
	}

	if positions, ok := formation[keyFormationPositions].([]any); ok {
		for _, p := range positions {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			v, _ := pm["vertical"].(float64)
			h, _ := pm["horizontal"].(float64)
			lineup.FormationPositions = append(lineup.FormationPositions, models.FormationPosition{Vertical: v, Horizontal: h})
		}
	}

	return lineup, true
}

func toStringSlice(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return out
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
