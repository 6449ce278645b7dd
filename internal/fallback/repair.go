// Package fallback implements the alternate-provider normalizer (C9):
// repairing truncated page-source JSON, remapping external ids onto
// internal ones, reshaping qualifiers, self-healing the player roster,
// and extracting lineups, finishing in the same read-model shape the
// primary ingestion loop produces.
package fallback

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	keyHome               = "home"
	keyAway               = "away"
	keyFormations         = "formations"
	keyPlayerIDs          = "playerIds"
	keyJerseyNumbers      = "jerseyNumbers"
	keyPlayerNameDict     = "playerIdNameDictionary"
	keyTeamID             = "teamId"
	keyEvents             = "events"
	keyFormationSlots     = "formationSlots"
	keyCaptainPlayerID    = "captainPlayerId"
	keyFormationID        = "formationId"
	keyFormationName      = "formationName"
	keyFormationPositions = "formationPositions"
)

var requiredTopLevelFields = []string{keyPlayerNameDict, keyEvents, keyHome, keyAway}

// RepairAndParse tolerates the two truncation shapes the alternate
// provider's scraped page source is known to arrive in: a trailing
// comma before the final brace, and a missing trailing closing brace
// entirely. It then validates that every field a normalizer pass needs
// is present.
func RepairAndParse(raw string) (map[string]any, error) {
	repaired := strings.TrimRight(raw, " \t\r\n")
	if strings.HasSuffix(repaired, "}") {
		body := strings.TrimRight(repaired[:len(repaired)-1], " \t\r\n")
		repaired = strings.TrimSuffix(body, ",") + "}"
	}
	repaired = strings.TrimRight(repaired, ",")
	if strings.Count(repaired, "{") > strings.Count(repaired, "}") {
		repaired += "}"
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return nil, fmt.Errorf("fallback: repaired page source still invalid: %w", err)
	}

	var missing []string
	for _, field := range requiredTopLevelFields {
		if _, ok := doc[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("fallback: page source missing required fields: %s", strings.Join(missing, ", "))
	}

	return doc, nil
}
