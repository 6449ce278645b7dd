package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/models"
)

type mockProjections struct {
	LoadByMatchFunc func(ctx context.Context, matchID string) ([]models.ReadModelRow, error)
	LoadByIdsFunc   func(ctx context.Context, eventIDs []int64) ([]models.ReadModelRow, error)
}

func (m *mockProjections) LoadByMatch(ctx context.Context, matchID string) ([]models.ReadModelRow, error) {
	return m.LoadByMatchFunc(ctx, matchID)
}

func (m *mockProjections) LoadByIds(ctx context.Context, eventIDs []int64) ([]models.ReadModelRow, error) {
	return m.LoadByIdsFunc(ctx, eventIDs)
}

func newTestHandler(proj ProjectionReader) *Handler {
	return New(Config{Projections: proj, Logger: zap.NewNop().Sugar()})
}

func TestEventsByGameID_MissingParam(t *testing.T) {
	h := newTestHandler(&mockProjections{})
	req := httptest.NewRequest(http.MethodGet, "/events_by_game_id", nil)
	w := httptest.NewRecorder()

	h.EventsByGameID(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestEventsByGameID_ReturnsRows(t *testing.T) {
	proj := &mockProjections{
		LoadByMatchFunc: func(ctx context.Context, matchID string) ([]models.ReadModelRow, error) {
			return []models.ReadModelRow{{EventID: 1, MatchID: matchID}}, nil
		},
	}
	h := newTestHandler(proj)

	req := httptest.NewRequest(http.MethodGet, "/events_by_game_id?game_id=m1", nil)
	w := httptest.NewRecorder()

	h.EventsByGameID(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
	var got []models.ReadModelRow
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].EventID != 1 {
		t.Fatalf("unexpected body: %+v", got)
	}
}

func TestEventsByIds_RejectsEmptyBody(t *testing.T) {
	h := newTestHandler(&mockProjections{})
	req := httptest.NewRequest(http.MethodPost, "/events_by_ids", bytes.NewBufferString(`{"event_ids":[]}`))
	w := httptest.NewRecorder()

	h.EventsByIds(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", w.Code)
	}
}

func TestEventsByIds_ReturnsMatchingRows(t *testing.T) {
	proj := &mockProjections{
		LoadByIdsFunc: func(ctx context.Context, eventIDs []int64) ([]models.ReadModelRow, error) {
			return []models.ReadModelRow{{EventID: eventIDs[0]}}, nil
		},
	}
	h := newTestHandler(proj)

	req := httptest.NewRequest(http.MethodPost, "/events_by_ids", bytes.NewBufferString(`{"event_ids":[9]}`))
	w := httptest.NewRecorder()

	h.EventsByIds(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}

func TestHealth_AlwaysOK(t *testing.T) {
	h := newTestHandler(&mockProjections{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	h.Health(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", w.Code)
	}
}

type fakePinger struct{ err error }

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestReady_FailsWhenAnyBackingStoreUnreachable(t *testing.T) {
	h := New(Config{
		Projections: &mockProjections{},
		ReadyChecks: []Pinger{&fakePinger{err: context.DeadlineExceeded}},
		Logger:      zap.NewNop().Sugar(),
	})
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()

	h.Ready(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", w.Code)
	}
}
