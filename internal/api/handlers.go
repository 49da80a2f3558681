package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mohamedkhairy/session-intel/internal/advisory"
	"github.com/mohamedkhairy/session-intel/internal/models"
	"github.com/mohamedkhairy/session-intel/internal/session"
	"github.com/mohamedkhairy/session-intel/pkg/logger"
)

// SnapshotProvider exposes the most recent published snapshot
type SnapshotProvider interface {
	Latest() *models.GlobalSnapshot
}

// SessionHandler handles session intelligence endpoints
type SessionHandler struct {
	engine *session.Engine
	source SnapshotProvider
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(engine *session.Engine, source SnapshotProvider) *SessionHandler {
	return &SessionHandler{
		engine: engine,
		source: source,
	}
}

// RegisterRoutes mounts the handler under router. OPTIONS is accepted so CORS
// preflight requests reach the middleware chain.
func (h *SessionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/snapshot", h.GetSnapshot).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/snapshot/at", h.GetSnapshotAt).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/sessions", h.ListSessions).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/advice", h.GetAdvice).Methods(http.MethodGet, http.MethodOptions)

	router.MethodNotAllowedHandler = MethodNotAllowedHandler()
}

// MethodNotAllowedHandler answers a known path with an unsupported method
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respondWithError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method "+r.Method+" not allowed")
	})
}

// GetSnapshot handles GET /api/v1/snapshot
func (h *SessionHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := h.source.Latest()
	if snapshot == nil {
		respondWithError(w, http.StatusServiceUnavailable, "not_ready", "No snapshot computed yet")
		return
	}

	respondWithJSON(w, http.StatusOK, snapshot)
}

// GetSnapshotAt handles GET /api/v1/snapshot/at?time=<RFC3339>
func (h *SessionHandler) GetSnapshotAt(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("time")
	if raw == "" {
		respondWithError(w, http.StatusBadRequest, "invalid_time", "time query parameter is required")
		return
	}

	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid_time", "time must be RFC3339, e.g. 2024-01-17T13:00:00Z")
		return
	}

	respondWithJSON(w, http.StatusOK, h.engine.Snapshot(at))
}

// ListSessions handles GET /api/v1/sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	definitions := h.engine.Definitions()

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"sessions": definitions,
		"count":    len(definitions),
	})
}

// GetAdvice handles GET /api/v1/advice?daily_loss_pct=<float>
func (h *SessionHandler) GetAdvice(w http.ResponseWriter, r *http.Request) {
	loss := 0.0
	if raw := r.URL.Query().Get("daily_loss_pct"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid_daily_loss_pct", "daily_loss_pct must be a number")
			return
		}
		loss = parsed
	}

	snapshot := h.source.Latest()
	if snapshot == nil {
		respondWithError(w, http.StatusServiceUnavailable, "not_ready", "No snapshot computed yet")
		return
	}

	advice, err := advisory.Escalate(snapshot.Intelligence, loss)
	if errors.Is(err, models.ErrInvalidDailyLossPercent) {
		respondWithError(w, http.StatusBadRequest, "invalid_daily_loss_pct", err.Error())
		return
	}
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "internal_error", "Failed to compute advice")
		return
	}

	if advice.Escalated {
		logger.WithContext(r.Context()).Info("Advice escalated to AVOID",
			logger.Float64("daily_loss_pct", loss),
			logger.String("session_verdict", string(snapshot.Intelligence.Verdict)),
		)
	}

	respondWithJSON(w, http.StatusOK, advice)
}
