package turn

import (
	"context"
	"fmt"
	"strings"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"
	llmtools "github.com/flitsinc/go-llms/tools"
)

const DefaultMaxIterations = 20

// Model is the single-round generation subset of llms.Provider.
type Model interface {
	Generate(ctx context.Context, systemPrompt content.Content, messages []llms.Message, toolbox *llmtools.Toolbox, jsonOutputSchema *llmtools.ValueSchema) llms.ProviderStream
}

// ToolExecutor advertises a tool catalog and executes individual calls.
type ToolExecutor interface {
	Toolbox() *llmtools.Toolbox
	Execute(ctx context.Context, tc llms.ToolCall) string
}

// Orchestrator runs one bounded tool-calling turn against a model. A nil
// Sink gives the non-streaming behavior; both modes produce identical final
// text for identical inputs and tool outcomes.
type Orchestrator struct {
	Model         Model
	Tools         ToolExecutor
	SystemPrompt  func() content.Content
	MaxIterations int
}

// Run drives the turn to completion. It returns the final answer text and
// the ordered log of tool names used. An exhausted iteration budget is not
// an error: whatever partial text the model produced last is returned.
// Model transport errors propagate.
func (o *Orchestrator) Run(ctx context.Context, initial []llms.Message, sink func(Event)) (string, []string, error) {
	if o.Model == nil {
		return "", nil, fmt.Errorf("no model configured")
	}
	emit := func(e Event) {
		if sink != nil {
			sink(e)
		}
	}

	maxIterations := o.MaxIterations
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	history := append([]llms.Message{}, initial...)
	var toolsUsed []string
	var lastText string

	for iteration := 1; iteration <= maxIterations; iteration++ {
		emit(Event{Type: EventThinking, Iteration: iteration})

		stream := o.Model.Generate(ctx, o.systemPrompt(), history, o.toolbox(), nil)
		for range stream.Iter() {
		}
		if err := stream.Err(); err != nil {
			return "", toolsUsed, fmt.Errorf("model round %d: %w", iteration, err)
		}

		message := stream.Message()
		if len(message.ToolCalls) == 0 {
			return StripReasoning(stream.Text()), toolsUsed, nil
		}

		// Keep the raw tool-call descriptors in history so the next round
		// can pair them with their results.
		history = append(history, message)
		if text := strings.TrimSpace(stream.Text()); text != "" {
			lastText = text
		}

		for _, tc := range message.ToolCalls {
			emit(Event{Type: EventToolCall, Name: tc.Name, Arguments: string(tc.Arguments)})
			result := o.Tools.Execute(ctx, tc)
			emit(Event{Type: EventToolResult, Name: tc.Name, Result: result})
			history = append(history, llms.Message{
				Role:       "tool",
				Content:    content.FromText(result),
				ToolCallID: tc.ID,
			})
			toolsUsed = append(toolsUsed, tc.Name)
		}
	}

	// Budget exhausted: a degraded but non-fatal outcome.
	return StripReasoning(lastText), toolsUsed, nil
}

func (o *Orchestrator) systemPrompt() content.Content {
	if o.SystemPrompt == nil {
		return nil
	}
	return o.SystemPrompt()
}

func (o *Orchestrator) toolbox() *llmtools.Toolbox {
	if o.Tools == nil {
		return nil
	}
	return o.Tools.Toolbox()
}
