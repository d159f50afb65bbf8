package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/flitsinc/agentd/internal/idgen"
	"github.com/flitsinc/agentd/internal/session"
)

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
	Stream   bool                `json:"stream"`
}

type completionChoice struct {
	Index        int               `json:"index"`
	Message      completionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

type completionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []completionChoice `json:"choices"`
	Usage   map[string]int     `json:"usage"`
}

// handleChatCompletions is an OpenAI-compatible adapter for clients that
// speak that protocol. Only the latest user message is consumed; each call
// runs under a fresh throwaway session key. Streaming is not supported.
func (s *Server) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w)
		return
	}
	if s.Turns == nil {
		writeError(w, http.StatusServiceUnavailable, errNotReady)
		return
	}
	// Lenient decode: OpenAI clients send fields we don't model.
	var req completionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var userMsg string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			userMsg = strings.TrimSpace(req.Messages[i].Content)
			break
		}
	}
	if userMsg == "" {
		writeError(w, http.StatusBadRequest, apiError{msg: "no user message found"})
		return
	}

	sessionKey := "api:" + idgen.Short()
	final, err := s.Turns.Run(r.Context(), session.Request{
		Message: userMsg,
		Session: sessionKey,
		Channel: "api",
		ChatID:  "api",
	}, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, completionResponse{
		ID:      "chatcmpl-" + idgen.Short(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   "agentd",
		Choices: []completionChoice{{
			Message:      completionMessage{Role: "assistant", Content: final},
			FinishReason: "stop",
		}},
		Usage: map[string]int{"prompt_tokens": 0, "completion_tokens": 0, "total_tokens": 0},
	})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"object": "list",
		"data": []map[string]string{
			{"id": "agentd", "object": "model", "owned_by": "local"},
		},
	})
}
