package engine

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"

	"github.com/flitsinc/agentd/internal/memory"
	"github.com/flitsinc/agentd/internal/session"
	"github.com/flitsinc/agentd/internal/state"
	"github.com/flitsinc/agentd/internal/turn"
)

const historyWindow = 20

// Runtime composes one turn end to end: retrieval augmentation, the bounded
// tool-calling loop, reply cleaning, and transcript recording. It implements
// session.Turns for both streaming (websocket) and silent (HTTP) callers.
type Runtime struct {
	Model         turn.Model
	Tools         turn.ToolExecutor
	Memory        *memory.Scheduler
	Store         *state.Store
	MaxIterations int
	SystemPrompt  func() content.Content
}

func (r *Runtime) Run(ctx context.Context, req session.Request, sink func(turn.Event)) (string, error) {
	if r == nil || r.Model == nil {
		return "", fmt.Errorf("agent not ready")
	}

	message := req.Message
	if r.Memory != nil {
		message = r.Memory.Augment(ctx, message)
	}
	if constraint := strings.TrimSpace(req.Constraint); constraint != "" {
		message = fmt.Sprintf("%s\n\n(Reply requirements: %s)", message, constraint)
	}

	history := r.loadHistory(ctx, req.Session)
	history = append(history, llms.Message{Role: "user", Content: content.FromText(message)})

	orch := &turn.Orchestrator{
		Model:         r.Model,
		Tools:         r.Tools,
		SystemPrompt:  r.SystemPrompt,
		MaxIterations: r.MaxIterations,
	}
	final, toolsUsed, err := orch.Run(ctx, history, sink)
	if err != nil {
		return "", err
	}
	if len(toolsUsed) > 0 {
		log.Printf("engine: session %s used tools: %s", req.Session, strings.Join(toolsUsed, ", "))
	}

	clean := turn.CleanReply(final)
	r.recordTranscript(ctx, req.Session, req.Message, clean)
	return clean, nil
}

// loadHistory rebuilds recent conversation context from the transcript
// store. Only user and assistant rows are replayed; tool traffic is not
// persisted across turns.
func (r *Runtime) loadHistory(ctx context.Context, sessionKey string) []llms.Message {
	if r.Store == nil {
		return nil
	}
	rows, err := r.Store.RecentMessages(ctx, sessionKey, historyWindow)
	if err != nil {
		log.Printf("engine: load history for %s: %v", sessionKey, err)
		return nil
	}
	var out []llms.Message
	for _, row := range rows {
		if row.Role != "user" && row.Role != "assistant" {
			continue
		}
		out = append(out, llms.Message{Role: row.Role, Content: content.FromText(row.Content)})
	}
	return out
}

func (r *Runtime) recordTranscript(ctx context.Context, sessionKey, userMsg, assistantMsg string) {
	if r.Store == nil {
		return
	}
	if err := r.Store.AppendMessage(ctx, sessionKey, "user", userMsg); err != nil {
		log.Printf("engine: record user message: %v", err)
		return
	}
	if err := r.Store.AppendMessage(ctx, sessionKey, "assistant", assistantMsg); err != nil {
		log.Printf("engine: record assistant message: %v", err)
	}
}
