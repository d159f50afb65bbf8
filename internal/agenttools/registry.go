package agenttools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"
	llmtools "github.com/flitsinc/go-llms/tools"
)

// Registry holds the tools exposed to the model and executes tool calls on
// its behalf. Registration order is preserved in the advertised catalog.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]llmtools.Tool
}

func NewRegistry() *Registry {
	return &Registry{tools: map[string]llmtools.Tool{}}
}

func (r *Registry) Register(name string, tool llmtools.Tool) {
	name = strings.TrimSpace(name)
	if name == "" || tool == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string{}, r.order...)
}

// Toolbox returns the tool catalog to advertise to the provider, or nil when
// no tools are registered.
func (r *Registry) Toolbox() *llmtools.Toolbox {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.order) == 0 {
		return nil
	}
	list := make([]llmtools.Tool, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return llmtools.Box(list...)
}

// Execute runs one tool call and flattens its result into text for the
// conversation history. Tool failures are returned as text, never as errors:
// the model sees the failure and decides what to do next.
func (r *Registry) Execute(ctx context.Context, tc llms.ToolCall) string {
	r.mu.RLock()
	tool, ok := r.tools[tc.Name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Sprintf("Error: tool %q is not available", tc.Name)
	}

	ctx = context.WithValue(ctx, llms.ToolCallContextKey, tc)
	runner := llmtools.NewRunner(ctx, nil, func(string) {})
	result := tool.Run(runner, tc.Arguments)
	if err := result.Error(); err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return flattenContent(result.Content())
}

func flattenContent(items content.Content) string {
	var parts []string
	for _, item := range items {
		switch v := item.(type) {
		case *content.Text:
			if strings.TrimSpace(v.Text) != "" {
				parts = append(parts, v.Text)
			}
		case *content.JSON:
			parts = append(parts, string(v.Data))
		}
	}
	if len(parts) == 0 {
		return "(no output)"
	}
	return strings.Join(parts, "\n")
}

// EncodeArguments renders a tool call's argument payload as compact JSON for
// event frames.
func EncodeArguments(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}
