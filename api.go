package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Morfar22/nexus-rp-portal-sub002/internal/audio"
)

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// parseJSON decodes the request body into v, rejecting unknown fields.
func parseJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleLogin authenticates a control client and sets the session cookie.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := parseJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	cfg := s.config.Snapshot()
	if !s.sessions.Login(w, r, req.Username, req.Password, cfg.Server.Username, cfg.Server.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleLogout ends the control session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleHealth reports process liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

// handleStatus returns the same snapshot the WebSocket pushes, for
// clients that prefer polling.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.buildWSStatus())
}

// handleAudioSample serves the most recent peer audio chunk as a
// standalone WAV file, for remote monitoring and debugging.
func (s *Server) handleAudioSample(w http.ResponseWriter, r *http.Request) {
	chunk := s.bridge.LastAudioChunk()
	if chunk == nil {
		writeError(w, http.StatusNotFound, "no audio received yet")
		return
	}
	w.Header().Set("Content-Type", "audio/wav")
	if _, err := w.Write(audio.WrapPCM(chunk)); err != nil {
		slog.Error("failed to write audio sample", "error", err)
	}
}

// handleChatMessages returns recent messages for a chat session.
func (s *Server) handleChatMessages(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence not configured")
		return
	}
	chatSessionID := r.URL.Query().Get("session_id")
	if chatSessionID == "" {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 500 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}
	messages, err := s.store.RecentMessages(r.Context(), chatSessionID, limit)
	if err != nil {
		slog.Error("fetching chat messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
