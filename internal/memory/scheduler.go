package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flitsinc/agentd/internal/tasks"
)

const (
	DefaultPeriod     = 10
	retrieveTopK      = 3
	maxUserChars      = 200
	maxAssistantChars = 300
)

// Retriever is the knowledge store consulted before each turn.
type Retriever interface {
	Ready() bool
	Retrieve(ctx context.Context, query string, limit int) ([]string, error)
}

// Summarizer makes one tool-free model call for consolidation.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Scheduler wraps each turn with pre-turn retrieval augmentation and
// post-turn history recording, and periodically distills recent history into
// the long-term memory document.
type Scheduler struct {
	Workspace  string
	Retriever  Retriever
	Summarizer Summarizer
	Tasks      *tasks.Tracker
	Period     int

	turns atomic.Int64
	nowFn func() time.Time
}

func NewScheduler(workspace string, retriever Retriever, summarizer Summarizer, tracker *tasks.Tracker) *Scheduler {
	return &Scheduler{
		Workspace:  workspace,
		Retriever:  retriever,
		Summarizer: summarizer,
		Tasks:      tracker,
		Period:     DefaultPeriod,
		nowFn:      func() time.Time { return time.Now() },
	}
}

func (s *Scheduler) historyPath() string {
	return filepath.Join(s.Workspace, "memory", "history.log")
}

func (s *Scheduler) memoryPath() string {
	return filepath.Join(s.Workspace, "memory", "MEMORY.md")
}

// Augment prepends a delimited context block of up to three relevant
// passages to the user message. The message itself is never replaced; with
// no retriever or no hits it is returned unchanged.
func (s *Scheduler) Augment(ctx context.Context, message string) string {
	if s.Retriever == nil || !s.Retriever.Ready() {
		return message
	}
	passages, err := s.Retriever.Retrieve(ctx, message, retrieveTopK)
	if err != nil {
		log.Printf("memory: augmentation failed: %v", err)
		return message
	}
	if len(passages) == 0 {
		return message
	}
	var b strings.Builder
	b.WriteString("[Context retrieved from the knowledge base, for reference only]\n")
	b.WriteString(strings.Join(passages, "\n"))
	b.WriteString("\n[End of context]\n\n")
	b.WriteString(message)
	return b.String()
}

// Record appends one truncated history line and, every Period turns,
// schedules consolidation without blocking the caller. Write failures are
// logged, never raised.
func (s *Scheduler) Record(ctx context.Context, session, userMsg, assistantMsg string) {
	line := fmt.Sprintf("%s [%s] Q: %s | A: %s\n",
		s.nowFn().Format("2006-01-02 15:04:05"),
		session,
		truncate(userMsg, maxUserChars),
		truncate(assistantMsg, maxAssistantChars),
	)
	if err := s.appendHistory(line); err != nil {
		log.Printf("memory: record history: %v", err)
	}

	count := s.turns.Add(1)
	period := s.Period
	if period <= 0 {
		period = DefaultPeriod
	}
	if count%int64(period) == 0 {
		s.scheduleConsolidation()
	}
}

// TurnCount returns the process-lifetime turn counter.
func (s *Scheduler) TurnCount() int64 {
	return s.turns.Load()
}

func (s *Scheduler) scheduleConsolidation() {
	run := func(ctx context.Context) {
		if err := s.Consolidate(ctx); err != nil {
			log.Printf("memory: consolidation failed: %v", err)
		}
	}
	if s.Tasks != nil {
		s.Tasks.Go("memory-consolidate", run)
		return
	}
	go run(context.Background())
}

func (s *Scheduler) appendHistory(line string) error {
	path := s.historyPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open history log: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// truncate limits text to max runes on a single line.
func truncate(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
