package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/tbgai/match-streamer/internal/models"
)

// rawFeedResponse mirrors the upstream provider's actual wire envelope:
// {"liveData":{"event":[...]}}. Field names here are the feed's own,
// not MatchEvent's internal tags.
type rawFeedResponse struct {
	LiveData struct {
		Event []rawEvent `json:"event"`
	} `json:"liveData"`
}

type rawQualifier struct {
	QualifierID int     `json:"qualifierId"`
	Value       *string `json:"value,omitempty"`
}

type rawEvent struct {
	ID           int            `json:"id"`
	EventID      int            `json:"eventId"`
	TypeID       int            `json:"typeId"`
	PeriodID     int            `json:"periodId"`
	TimeMin      int            `json:"timeMin"`
	TimeSec      int            `json:"timeSec"`
	ContestantID string         `json:"contestantId"`
	PlayerID     *string        `json:"playerId,omitempty"`
	PlayerName   *string        `json:"playerName,omitempty"`
	Outcome      *int           `json:"outcome,omitempty"`
	X            *float64       `json:"x,omitempty"`
	Y            *float64       `json:"y,omitempty"`
	Qualifier    []rawQualifier `json:"qualifier,omitempty"`
	TimeStamp    *string        `json:"timeStamp,omitempty"`
	LastModified int64          `json:"lastModified"`
}

func (e rawEvent) toMatchEvent(matchID string) models.MatchEvent {
	qualifiers := make([]models.Qualifier, 0, len(e.Qualifier))
	for _, q := range e.Qualifier {
		qualifiers = append(qualifiers, models.Qualifier{QualifierID: q.QualifierID, Value: q.Value})
	}
	return models.MatchEvent{
		FeedEventID:  e.ID,
		LocalEventID: e.EventID,
		MatchID:      matchID,
		TypeID:       e.TypeID,
		PeriodID:     e.PeriodID,
		TimeMin:      e.TimeMin,
		TimeSec:      e.TimeSec,
		TeamID:       e.ContestantID,
		PlayerID:     e.PlayerID,
		PlayerName:   e.PlayerName,
		OutcomeID:    e.Outcome,
		X:            e.X,
		Y:            e.Y,
		TimeStamp:    e.TimeStamp,
		LastModified: e.LastModified,
		Qualifiers:   qualifiers,
	}
}

// HTTPClient fetches a match's current event snapshot from the upstream
// feed provider over plain HTTP. It sends no credentials: NewHTTPClient
// builds a plain http.Client with a 10-second timeout, and token minting
// and refresh are not handled here. This type only shapes the request
// and response.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPClient builds an HTTPClient against baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Fetch implements Client.
func (c *HTTPClient) Fetch(ctx context.Context, matchID string) (FetchResult, error) {
	url := fmt.Sprintf("%s/matches/%s/events", c.baseURL, matchID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return FetchResult{}, fmt.Errorf("feed: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return FetchResult{}, fmt.Errorf("feed: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return FetchResult{}, fmt.Errorf("feed: unexpected status %s", resp.Status)
	}

	var raw rawFeedResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return FetchResult{}, fmt.Errorf("feed: decode response: %w", err)
	}

	events := make([]models.MatchEvent, 0, len(raw.LiveData.Event))
	for _, re := range raw.LiveData.Event {
		events = append(events, re.toMatchEvent(matchID))
	}
	return FetchResult{Events: events}, nil
}
