package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flitsinc/agentd/internal/session"
	"github.com/flitsinc/agentd/internal/state"
	"github.com/flitsinc/agentd/internal/tasks"
	"github.com/flitsinc/agentd/internal/turn"
)

type Server struct {
	Store     *state.Store
	Turns     session.Turns
	Recorder  session.Recorder
	Tasks     *tasks.Tracker
	Heartbeat time.Duration
	StartedAt time.Time
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSessionItem)
	mux.HandleFunc("/api/knowledge/search", s.handleKnowledgeSearch)
	mux.HandleFunc("/api/knowledge/add", s.handleKnowledgeAdd)
	mux.HandleFunc("/ws/chat", s.handleChatWS)
	mux.HandleFunc("/v1/chat/completions", s.handleChatCompletions)
	mux.HandleFunc("/v1/models", s.handleModels)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ready":  s.Turns != nil,
		"uptime": time.Since(s.StartedAt).Round(time.Second).String(),
		"time":   time.Now().UTC(),
	})
}

type chatRequest struct {
	Message    string `json:"message"`
	Session    string `json:"session"`
	Constraint string `json:"constraint"`
}

type chatResponse struct {
	Response  string  `json:"response"`
	Session   string  `json:"session"`
	Emotion   string  `json:"emotion"`
	Timestamp float64 `json:"timestamp"`
}

// handleChat runs one silent turn: no intermediate events, just the final
// answer. Transcript and memory recording happen exactly as on the
// streaming path.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, errRequired("message"))
		return
	}
	if s.Turns == nil {
		writeError(w, http.StatusServiceUnavailable, errNotReady)
		return
	}

	sessionKey := strings.TrimSpace(req.Session)
	if sessionKey == "" {
		sessionKey = "api:default"
	}

	final, err := s.Turns.Run(r.Context(), session.Request{
		Message:    message,
		Session:    sessionKey,
		Constraint: req.Constraint,
		Channel:    "api",
		ChatID:     sessionKey,
	}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.Recorder != nil && s.Tasks != nil {
		userMsg := message
		s.Tasks.Go("memory-record", func(ctx context.Context) {
			s.Recorder.Record(ctx, sessionKey, userMsg, final)
		})
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  final,
		Session:   sessionKey,
		Emotion:   turn.Classify(final),
		Timestamp: turn.Now(),
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	items, err := s.Store.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if items == nil {
		items = []state.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSessionItem(w http.ResponseWriter, r *http.Request) {
	name := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/sessions/"), "/")
	if name == "" {
		writeError(w, http.StatusNotFound, errNotFound("session"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		limit := parseInt(r.URL.Query().Get("limit"), 50)
		messages, err := s.Store.RecentMessages(r.Context(), name, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		if messages == nil {
			messages = []state.MessageRow{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"session": name, "messages": messages})
	case http.MethodDelete:
		if err := s.Store.DeleteSession(r.Context(), name); err != nil {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
	default:
		writeMethodNotAllowed(w)
	}
}

type knowledgeSearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleKnowledgeSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req knowledgeSearchRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, errRequired("query"))
		return
	}
	results, err := s.Store.Retrieve(r.Context(), req.Query, req.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

type knowledgeAddRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleKnowledgeAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	var req knowledgeAddRequest
	if err := decodeJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	id, err := s.Store.AddPassage(r.Context(), req.Content)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func decodeJSON(body io.Reader, dest any) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

func writeMethodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"})
}

func parseInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

type apiError struct {
	msg string
}

func (e apiError) Error() string { return e.msg }

var errNotReady = apiError{msg: "Agent not ready"}

func errNotFound(target string) error {
	return apiError{msg: target + " not found"}
}

func errRequired(field string) error {
	return apiError{msg: field + " is required"}
}
