package turn

import "time"

type EventType string

const (
	EventThinking   EventType = "thinking"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventHeartbeat  EventType = "heartbeat"
	EventFinal      EventType = "final"
	EventError      EventType = "error"
)

// Event is one frame of turn progress as delivered to a client. The Type
// field selects which of the remaining fields are populated.
type Event struct {
	Type      EventType `json:"type"`
	Iteration int       `json:"iteration,omitempty"`
	Name      string    `json:"name,omitempty"`
	Arguments string    `json:"arguments,omitempty"`
	Result    string    `json:"result,omitempty"`
	Content   string    `json:"content,omitempty"`
	Message   string    `json:"message,omitempty"`
	Emotion   string    `json:"emotion,omitempty"`
	Session   string    `json:"session,omitempty"`
	Timestamp float64   `json:"timestamp,omitempty"`
}

// Timestamp returns the current wall clock as fractional unix seconds, the
// format heartbeat and final frames carry on the wire.
func Now() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
