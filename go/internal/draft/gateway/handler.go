package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/draft"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/rpcutil"
	"github.com/MOODMNKY-LLC/POKE-MNKY-v2-sub005/go/internal/storage"
)

// StateProvider serves the polling fallback for clients whose socket dropped.
// Both *draft.App and the RPC client satisfy it.
type StateProvider interface {
	GetSessionState(ctx context.Context, sessionID uuid.UUID) (*draft.SessionState, error)
}

// Handler serves the gateway's HTTP surface.
type Handler struct {
	connections *ConnectionManager
	state       StateProvider
}

// NewHandler creates the gateway HTTP handler. state may be nil, in which case
// the state route is not mounted.
func NewHandler(cm *ConnectionManager, state StateProvider) *Handler {
	return &Handler{connections: cm, state: state}
}

// Routes returns the gateway router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/ws/seasons/{seasonID}", h.HandleSeasonConnection)
	r.Get("/ws/stats", h.HandleConnectionStats)
	if h.state != nil {
		r.Get("/sessions/{sessionID}/state", h.HandleSessionState)
	}
	return r
}

// HandleSeasonConnection upgrades to a WebSocket that receives every event of
// the season: draft events of its sessions and free agency transactions.
func (h *Handler) HandleSeasonConnection(w http.ResponseWriter, r *http.Request) {
	seasonID, err := uuid.Parse(chi.URLParam(r, "seasonID"))
	if err != nil {
		http.Error(w, "invalid season id", http.StatusBadRequest)
		return
	}

	userID := "anonymous"
	if c := rpcutil.CallerFrom(r.Header); c.TeamID != uuid.Nil {
		userID = c.TeamID.String()
	} else if q := r.URL.Query().Get("team_id"); q != "" {
		userID = q
	}

	if err := h.connections.UpgradeConnection(w, r, userID, seasonID); err != nil {
		// The upgrader has already written the HTTP error.
		log.Error().
			Err(err).
			Str("season_id", seasonID.String()).
			Str("user_id", userID).
			Msg("failed to upgrade WebSocket connection")
	}
}

// HandleConnectionStats returns statistics about active connections
func (h *Handler) HandleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connections.Stats())
}

// HandleSessionState handles GET /sessions/{sessionID}/state
func (h *Handler) HandleSessionState(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionID"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	state, err := h.state.GetSessionState(r.Context(), sessionID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, "session not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to get session state")
		http.Error(w, "failed to get session state", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, state)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
