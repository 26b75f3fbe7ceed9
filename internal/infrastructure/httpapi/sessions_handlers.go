package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/eulucasalbert/tiktok-lovable-railway/internal/domain"
)

func (d *Deps) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sessions, err := d.Sessions.ListSessions(r.Context(), parseLimit(r, 100))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": sessions, "total": len(sessions)})
	case http.MethodPost:
		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_JSON", "invalid json", nil)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" {
			writeError(w, http.StatusBadRequest, "MISSING_USERNAME", "username is required", nil)
			return
		}
		sess := domain.Session{
			ID:        uuid.NewString(),
			Username:  req.Username,
			Status:    domain.StatusPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := d.Sessions.CreateSession(r.Context(), sess); err != nil {
			writeError(w, http.StatusInternalServerError, "SESSION_CREATE_FAILED", err.Error(), nil)
			return
		}
		d.Logger.Info().Str("session", sess.ID).Str("username", sess.Username).Msg("session requested")
		writeJSON(w, http.StatusCreated, sess)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET or POST", nil)
	}
}

func (d *Deps) handleSessionByID(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return
	}
	id := parts[0]

	if len(parts) == 2 && parts[1] == "events" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET", nil)
			return
		}
		events, err := d.Events.ListEvents(r.Context(), id, parseLimit(r, 500))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "LIST_FAILED", err.Error(), nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": events, "total": len(events)})
		return
	}
	if len(parts) > 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
		return
	}

	switch r.Method {
	case http.MethodGet:
		sess, ok, err := d.Sessions.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "GET_FAILED", err.Error(), nil)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	case http.MethodDelete:
		// A terminal status write; the watcher observes it and tears the
		// live connection down when this is the active session.
		_, ok, err := d.Sessions.GetSession(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "GET_FAILED", err.Error(), nil)
			return
		}
		if !ok {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "session not found", nil)
			return
		}
		if err := d.Sessions.UpdateSessionStatus(r.Context(), id, domain.StatusDisconnected); err != nil {
			writeError(w, http.StatusInternalServerError, "UPDATE_FAILED", err.Error(), nil)
			return
		}
		d.Logger.Info().Str("session", id).Msg("session disconnect requested")
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET or DELETE", nil)
	}
}

func (d *Deps) handleBattle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "use GET", nil)
		return
	}
	sessionID, handle, connected := d.Manager.Active()
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": connected,
		"sessionId": sessionID,
		"target":    handle,
		"battle":    d.Battle.Snapshot(),
	})
}

func parseLimit(r *http.Request, def int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
