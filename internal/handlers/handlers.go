// Package handlers implements the read-only query surface (C12):
// GET /events_by_game_id, POST /events_by_ids, and health/readiness
// checks, matching the teacher's handler-composition and structured
// logging style.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/tbgai/match-streamer/internal/models"
)

// ProjectionReader is the narrow slice of projectionstore.Store the
// query surface needs.
type ProjectionReader interface {
	LoadByMatch(ctx context.Context, matchID string) ([]models.ReadModelRow, error)
	LoadByIds(ctx context.Context, eventIDs []int64) ([]models.ReadModelRow, error)
}

// Pinger is satisfied by any backing store the readiness check wants to
// verify is reachable. pgxpool.Pool implements it directly; redis.Client
// needs a one-line adapter since Ping returns *redis.StatusCmd rather
// than a plain error.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler composes the query API's dependencies.
type Handler struct {
	projections ProjectionReader
	ready       []Pinger
	logger      *zap.SugaredLogger
	validate    *validator.Validate
}

// Config is the set of dependencies Handler needs.
type Config struct {
	Projections ProjectionReader
	ReadyChecks []Pinger
	Logger      *zap.SugaredLogger
}

// New builds a Handler from Config.
func New(cfg Config) *Handler {
	return &Handler{
		projections: cfg.Projections,
		ready:       cfg.ReadyChecks,
		logger:      cfg.Logger,
		validate:    validator.New(),
	}
}

// Routes mounts the query surface onto a chi router.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/events_by_game_id", h.EventsByGameID)
	r.Post("/events_by_ids", h.EventsByIds)
	r.Get("/healthz", h.Health)
	r.Get("/readyz", h.Ready)
}

// EventsByGameID returns every read-model row currently known for a
// match.
//
// @Summary Get all events for a match
// @Router /events_by_game_id [get]
func (h *Handler) EventsByGameID(w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("game_id")
	if matchID == "" {
		http.Error(w, "missing game_id", http.StatusBadRequest)
		return
	}

	rows, err := h.projections.LoadByMatch(r.Context(), matchID)
	if err != nil {
		h.logger.Errorw("events_by_game_id failed", "match_id", matchID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

type eventsByIdsRequest struct {
	EventIDs []int64 `json:"event_ids" validate:"required,min=1"`
}

// EventsByIds returns the read-model rows matching the given event ids.
//
// @Summary Get events by id
// @Router /events_by_ids [post]
func (h *Handler) EventsByIds(w http.ResponseWriter, r *http.Request) {
	var req eventsByIdsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		http.Error(w, "event_ids must not be empty", http.StatusBadRequest)
		return
	}

	rows, err := h.projections.LoadByIds(r.Context(), req.EventIDs)
	if err != nil {
		h.logger.Errorw("events_by_ids failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

const maxBodyBytes = 1 << 20

// Health reports process liveness only.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready pings every backing store the handler was configured with.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	for _, p := range h.ready {
		if err := p.Ping(r.Context()); err != nil {
			h.logger.Warnw("readiness check failed", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
