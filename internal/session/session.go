package session

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/flitsinc/agentd/internal/tasks"
	"github.com/flitsinc/agentd/internal/turn"
)

const DefaultHeartbeatInterval = 15 * time.Second

// Request describes one inbound turn.
type Request struct {
	Message    string
	Session    string
	Constraint string
	Channel    string
	ChatID     string
}

// Turns runs one complete turn and returns the cleaned final answer.
type Turns interface {
	Run(ctx context.Context, req Request, sink func(turn.Event)) (string, error)
}

// Recorder is the post-turn memory recording hook.
type Recorder interface {
	Record(ctx context.Context, session, userMsg, assistantMsg string)
}

// conn is the duplex channel surface the session needs; coder/websocket's
// Conn satisfies it and tests substitute fakes.
type conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
}

// Session owns exactly one duplex channel. Payloads are processed one at a
// time: a new turn starts only after the previous turn's terminal event has
// been sent. A heartbeat goroutine keeps the channel alive during tool-heavy
// turns and is cancelled unconditionally when the turn ends.
type Session struct {
	conn      conn
	turns     Turns
	recorder  Recorder
	tasks     *tasks.Tracker
	heartbeat time.Duration

	writeMu sync.Mutex
}

type Option func(*Session)

func WithHeartbeatInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

func New(c conn, turns Turns, recorder Recorder, tracker *tasks.Tracker, opts ...Option) *Session {
	s := &Session{
		conn:      c,
		turns:     turns,
		recorder:  recorder,
		tasks:     tracker,
		heartbeat: DefaultHeartbeatInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type inboundFrame struct {
	Message    string `json:"message"`
	Session    string `json:"session"`
	Constraint string `json:"constraint"`
}

// Serve runs the receive loop until the channel disconnects. Malformed
// payloads and turn failures produce error frames and keep the channel
// open; only a read failure (true disconnect) terminates the loop.
func (s *Session) Serve(ctx context.Context) error {
	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			return err
		}

		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			s.sendError(ctx, "Invalid JSON")
			continue
		}
		message := strings.TrimSpace(frame.Message)
		if message == "" {
			s.sendError(ctx, "Empty message")
			continue
		}
		if s.turns == nil {
			s.sendError(ctx, "Agent not ready")
			continue
		}

		sessionKey := strings.TrimSpace(frame.Session)
		if sessionKey == "" {
			sessionKey = "default"
		}

		s.runTurn(ctx, Request{
			Message:    message,
			Session:    sessionKey,
			Constraint: frame.Constraint,
			Channel:    "ws",
			ChatID:     sessionKey,
		})
	}
}

func (s *Session) runTurn(ctx context.Context, req Request) {
	hbCtx, cancelHeartbeat := context.WithCancel(ctx)
	go s.heartbeatLoop(hbCtx)
	defer cancelHeartbeat()

	// The sink lives only for this call; once Run returns no further events
	// can reach the channel.
	sink := func(e turn.Event) {
		s.send(ctx, turn.Enrich(e))
	}

	final, err := s.turns.Run(ctx, req, sink)
	cancelHeartbeat()
	if err != nil {
		s.sendError(ctx, err.Error())
		return
	}

	if s.recorder != nil {
		userMsg := req.Message
		sessionKey := req.Session
		record := func(ctx context.Context) {
			s.recorder.Record(ctx, sessionKey, userMsg, final)
		}
		if s.tasks != nil {
			s.tasks.Go("memory-record", record)
		} else {
			go record(context.Background())
		}
	}

	s.send(ctx, turn.Event{
		Type:      turn.EventFinal,
		Content:   final,
		Emotion:   turn.Classify(final),
		Session:   req.Session,
		Timestamp: turn.Now(),
	})
}

func (s *Session) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.send(ctx, turn.Event{Type: turn.EventHeartbeat, Timestamp: turn.Now()})
		}
	}
}

func (s *Session) sendError(ctx context.Context, message string) {
	s.send(ctx, turn.Event{Type: turn.EventError, Message: message})
}

// send writes one frame. A failed write means the channel disconnected;
// the remainder of the turn's output is discarded.
func (s *Session) send(ctx context.Context, e turn.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.conn.Write(ctx, websocket.MessageText, payload)
}
