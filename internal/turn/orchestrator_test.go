package turn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"
	llmtools "github.com/flitsinc/go-llms/tools"
)

type fakeStream struct {
	err      error
	text     string
	message  llms.Message
	statuses []llms.StreamStatus
}

func (s *fakeStream) Err() error               { return s.err }
func (s *fakeStream) Message() llms.Message    { return s.message }
func (s *fakeStream) Text() string             { return s.text }
func (s *fakeStream) Image() (string, string)  { return "", "" }
func (s *fakeStream) Audio() (string, string)  { return "", "" }
func (s *fakeStream) Thought() content.Thought { return content.Thought{} }
func (s *fakeStream) ToolCall() llms.ToolCall  { return llms.ToolCall{} }
func (s *fakeStream) Usage() llms.Usage        { return llms.Usage{} }
func (s *fakeStream) Iter() func(func(llms.StreamStatus) bool) {
	return func(yield func(llms.StreamStatus) bool) {
		for _, status := range s.statuses {
			if !yield(status) {
				return
			}
		}
	}
}

// scriptedModel replays a fixed sequence of streams, one per Generate call,
// and records the history it was given each round.
type scriptedModel struct {
	streams   []*fakeStream
	histories [][]llms.Message
}

func (m *scriptedModel) Generate(_ context.Context, _ content.Content, messages []llms.Message, _ *llmtools.Toolbox, _ *llmtools.ValueSchema) llms.ProviderStream {
	snapshot := append([]llms.Message{}, messages...)
	m.histories = append(m.histories, snapshot)
	i := len(m.histories) - 1
	if i >= len(m.streams) {
		i = len(m.streams) - 1
	}
	return m.streams[i]
}

type mapTools struct {
	results map[string]string
	calls   []string
}

func (t *mapTools) Toolbox() *llmtools.Toolbox { return nil }

func (t *mapTools) Execute(_ context.Context, tc llms.ToolCall) string {
	t.calls = append(t.calls, tc.Name)
	if out, ok := t.results[tc.Name]; ok {
		return out
	}
	return fmt.Sprintf("Error: tool %q is not available", tc.Name)
}

func toolCallRound(text string, calls ...llms.ToolCall) *fakeStream {
	return &fakeStream{
		text:     text,
		message:  llms.Message{Role: "assistant", ToolCalls: calls},
		statuses: []llms.StreamStatus{llms.StreamStatusToolCallReady},
	}
}

func finalRound(text string) *fakeStream {
	return &fakeStream{
		text:     text,
		message:  llms.Message{Role: "assistant", Content: content.FromText(text)},
		statuses: []llms.StreamStatus{llms.StreamStatusText},
	}
}

func userMessage(text string) []llms.Message {
	return []llms.Message{{Role: "user", Content: content.FromText(text)}}
}

func TestRunFinalWithoutTools(t *testing.T) {
	model := &scriptedModel{streams: []*fakeStream{
		finalRound("<think>pondering</think>The answer is 4."),
	}}
	orch := &Orchestrator{Model: model}

	var events []Event
	final, toolsUsed, err := orch.Run(context.Background(), userMessage("2+2?"), func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if final != "The answer is 4." {
		t.Fatalf("unexpected final text: %q", final)
	}
	if len(toolsUsed) != 0 {
		t.Fatalf("expected no tools used, got %v", toolsUsed)
	}
	if len(events) != 1 || events[0].Type != EventThinking || events[0].Iteration != 1 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestRunTwoToolCallsEventOrder(t *testing.T) {
	callA := llms.ToolCall{ID: "call-1", Name: "exec", Arguments: json.RawMessage(`{"command":"date"}`)}
	callB := llms.ToolCall{ID: "call-2", Name: "exec", Arguments: json.RawMessage(`{"command":"uptime"}`)}
	model := &scriptedModel{streams: []*fakeStream{
		toolCallRound("", callA, callB),
		finalRound("done"),
	}}
	tools := &mapTools{results: map[string]string{"exec": "ok"}}
	orch := &Orchestrator{Model: model, Tools: tools}

	var events []Event
	final, toolsUsed, err := orch.Run(context.Background(), userMessage("check the host"), func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}
	if final != "done" {
		t.Fatalf("unexpected final text: %q", final)
	}

	wantTypes := []EventType{
		EventThinking, EventToolCall, EventToolResult, EventToolCall, EventToolResult, EventThinking,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantTypes), len(events), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Fatalf("event %d: got %s, want %s", i, events[i].Type, want)
		}
	}
	if events[0].Iteration != 1 || events[5].Iteration != 2 {
		t.Fatalf("iterations not increasing: %+v", events)
	}
	if len(toolsUsed) != 2 {
		t.Fatalf("expected 2 tools used, got %v", toolsUsed)
	}

	// The second round must see both tool results keyed to their calls.
	second := model.histories[1]
	var toolMsgs []llms.Message
	for _, m := range second {
		if m.Role == "tool" {
			toolMsgs = append(toolMsgs, m)
		}
	}
	if len(toolMsgs) != 2 {
		t.Fatalf("expected 2 tool messages in history, got %d", len(toolMsgs))
	}
	if toolMsgs[0].ToolCallID != "call-1" || toolMsgs[1].ToolCallID != "call-2" {
		t.Fatalf("tool messages not keyed to calls: %+v", toolMsgs)
	}
}

func TestRunBudgetExhaustedIsNotAnError(t *testing.T) {
	call := llms.ToolCall{ID: "call-1", Name: "exec", Arguments: json.RawMessage(`{}`)}
	model := &scriptedModel{streams: []*fakeStream{
		toolCallRound("working on it", call),
		toolCallRound("still working", call),
	}}
	tools := &mapTools{results: map[string]string{"exec": "ok"}}
	orch := &Orchestrator{Model: model, Tools: tools, MaxIterations: 2}

	final, toolsUsed, err := orch.Run(context.Background(), userMessage("loop"), nil)
	if err != nil {
		t.Fatalf("budget exhaustion must not error: %v", err)
	}
	if final != "still working" {
		t.Fatalf("unexpected partial text: %q", final)
	}
	if len(toolsUsed) != 2 {
		t.Fatalf("expected tool log retained, got %v", toolsUsed)
	}
	if len(model.histories) != 2 {
		t.Fatalf("expected exactly 2 rounds, got %d", len(model.histories))
	}
}

func TestRunModelErrorPropagates(t *testing.T) {
	wantErr := errors.New("connection reset")
	model := &scriptedModel{streams: []*fakeStream{{err: wantErr}}}
	orch := &Orchestrator{Model: model}

	_, _, err := orch.Run(context.Background(), userMessage("hi"), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped model error, got %v", err)
	}
}

func TestRunNilSinkMatchesStreamingFinal(t *testing.T) {
	call := llms.ToolCall{ID: "call-1", Name: "exec", Arguments: json.RawMessage(`{}`)}
	build := func() *Orchestrator {
		return &Orchestrator{
			Model: &scriptedModel{streams: []*fakeStream{
				toolCallRound("", call),
				finalRound("same answer"),
			}},
			Tools: &mapTools{results: map[string]string{"exec": "ok"}},
		}
	}

	silent, _, err := build().Run(context.Background(), userMessage("q"), nil)
	if err != nil {
		t.Fatalf("silent run error: %v", err)
	}
	streaming, _, err := build().Run(context.Background(), userMessage("q"), func(Event) {})
	if err != nil {
		t.Fatalf("streaming run error: %v", err)
	}
	if silent != streaming {
		t.Fatalf("silent %q != streaming %q", silent, streaming)
	}
}

func TestRunSequentialToolRounds(t *testing.T) {
	callA := llms.ToolCall{ID: "call-1", Name: "exec", Arguments: json.RawMessage(`{"command":"cat /tmp/x"}`)}
	callB := llms.ToolCall{ID: "call-2", Name: "exec", Arguments: json.RawMessage(`{"command":"echo done"}`)}
	model := &scriptedModel{streams: []*fakeStream{
		toolCallRound("", callA),
		toolCallRound("", callB),
		finalRound("ok"),
	}}
	orch := &Orchestrator{Model: model, Tools: &mapTools{results: map[string]string{"exec": "ok"}}}

	var events []Event
	_, _, err := orch.Run(context.Background(), userMessage("go"), func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("run error: %v", err)
	}

	wantTypes := []EventType{
		EventThinking, EventToolCall, EventToolResult,
		EventThinking, EventToolCall, EventToolResult,
		EventThinking,
	}
	if len(events) != len(wantTypes) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantTypes), len(events), events)
	}
	for i, want := range wantTypes {
		if events[i].Type != want {
			t.Fatalf("event %d: got %s, want %s", i, events[i].Type, want)
		}
	}

	var iterations []int
	for _, e := range events {
		if e.Type == EventThinking {
			iterations = append(iterations, e.Iteration)
		}
	}
	for i, it := range iterations {
		if it != i+1 {
			t.Fatalf("iterations not strictly increasing from 1: %v", iterations)
		}
	}
}
