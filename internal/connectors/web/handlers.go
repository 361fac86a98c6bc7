package web

import (
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lewisedginton/memory_relay/internal/session_orchestrator"
	"github.com/lewisedginton/memory_relay/pkg/logger"
	"github.com/lewisedginton/memory_relay/pkg/prefixed_uuid"
)

const (
	// DefaultUserID is used for API callers that send neither user_id nor a
	// visitor cookie.
	DefaultUserID = "web"

	visitorCookie = "relay_visitor"
	visitorPrefix = "web"
	maxChatBody   = 64 << 10
)

type chatRequest struct {
	Message string `json:"message"`
	UserID  string `json:"user_id,omitempty"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type healthResponse struct {
	Status string `json:"status"`
	Usage  int64  `json:"usage"`
}

type memoryResponse struct {
	UserID   string            `json:"user_id"`
	Memories map[string]string `json:"memories"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if _, ok := visitorID(r); !ok {
		http.SetCookie(w, &http.Cookie{
			Name:     visitorCookie,
			Value:    prefixed_uuid.New(visitorPrefix).String(),
			Path:     "/",
			MaxAge:   365 * 24 * 60 * 60,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	page, err := fs.ReadFile(staticFiles, "static/index.html")
	if err != nil {
		s.log.Error("Failed to read chat page", logger.ErrorField(err))
		http.Error(w, "chat page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, chatResponse{Reply: "Invalid request body"})
		return
	}

	text, err := session_orchestrator.ValidateMessage(req.Message)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, chatResponse{Reply: "Empty message"})
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		if id, ok := visitorID(r); ok {
			userID = id
		} else {
			userID = DefaultUserID
		}
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.MessageReceived("web")
	}
	reply := s.responder.Respond(r.Context(), userID, text)
	writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Usage: s.responder.Usage()})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	facts, err := s.responder.Memories(r.Context(), userID)
	switch {
	case errors.Is(err, session_orchestrator.ErrFactsUnavailable):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to read memories"})
		return
	}
	if facts == nil {
		facts = map[string]string{}
	}
	writeJSON(w, http.StatusOK, memoryResponse{UserID: userID, Memories: facts})
}

func (s *Server) handleForget(w http.ResponseWriter, r *http.Request) {
	// history lives in process only; /memory addresses durable facts
	if s.responder.MemoryMode() != session_orchestrator.ModeFacts {
		writeJSON(w, http.StatusConflict, errorResponse{Error: session_orchestrator.ErrFactsUnavailable.Error()})
		return
	}
	if err := s.responder.Forget(r.Context(), chi.URLParam(r, "userID")); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to forget user"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visitorID returns the browser's id when it carries a well-formed cookie.
func visitorID(r *http.Request) (string, bool) {
	c, err := r.Cookie(visitorCookie)
	if err != nil {
		return "", false
	}
	id, err := prefixed_uuid.ParseWithPrefix(c.Value, visitorPrefix)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
