// Command seed posts a synthetic fixture and a handful of synthetic
// match events against a locally running feed/calendar stub, for
// smoke-testing the scheduler and ingestion loop without a real upstream
// provider.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type fixture struct {
	MatchID string    `json:"matchId"`
	Kickoff time.Time `json:"kickoff"`
}

// rawEvent mirrors the upstream feed's own wire field names (id,
// eventId, contestantId, ...), not the internal MatchEvent shape.
type rawEvent struct {
	ID           int    `json:"id"`
	EventID      int    `json:"eventId"`
	TypeID       int    `json:"typeId"`
	PeriodID     int    `json:"periodId"`
	TimeMin      int    `json:"timeMin"`
	TimeSec      int    `json:"timeSec"`
	ContestantID string `json:"contestantId"`
}

type liveData struct {
	Event []rawEvent `json:"event"`
}

type fetchResult struct {
	LiveData liveData `json:"liveData"`
}

func main() {
	calendarURL := flag.String("calendar-url", "http://localhost:8081", "base URL of the calendar stub")
	feedURL := flag.String("feed-url", "http://localhost:8082", "base URL of the feed stub")
	tournamentID := flag.String("tournament-id", "demo-tournament", "tournament id to seed")
	matchID := flag.String("match-id", "demo-match-1", "match id to seed")
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fixtures := []fixture{
		{MatchID: *matchID, Kickoff: time.Now().UTC().Add(-5 * time.Minute)},
	}
	postJSON(client, fmt.Sprintf("%s/tournaments/%s/fixtures", *calendarURL, *tournamentID), fixtures)

	result := fetchResult{
		LiveData: liveData{
			Event: []rawEvent{
				{ID: 1, EventID: 1, TypeID: 1, PeriodID: 1, TimeMin: 0, TimeSec: 5, ContestantID: "team-home"},
				{ID: 2, EventID: 2, TypeID: 16, PeriodID: 1, TimeMin: 23, TimeSec: 10, ContestantID: "team-home"},
				{ID: 3, EventID: 3, TypeID: 30, PeriodID: 2, TimeMin: 90, TimeSec: 0, ContestantID: "team-home"},
			},
		},
	}
	postJSON(client, fmt.Sprintf("%s/matches/%s/events", *feedURL, *matchID), result)

	log.Printf("seeded fixture and %d events for match %s", len(result.LiveData.Event), *matchID)
}

func postJSON(client *http.Client, url string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Fatalf("encode payload for %s: %v", url, err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		log.Fatalf("build request for %s: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("request to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	log.Printf("POST %s -> %s: %s", url, resp.Status, string(respBody))
}
