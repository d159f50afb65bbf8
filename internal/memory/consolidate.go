package memory

import (
	"context"
	"fmt"
	"os"
	"strings"
)

const consolidationWindow = 50

// Consolidate rewrites the long-term memory document from the most recent
// history entries. The document is replaced in full; if two runs ever
// overlap the later write wins.
func (s *Scheduler) Consolidate(ctx context.Context) error {
	if s.Summarizer == nil {
		return fmt.Errorf("no summarizer configured")
	}

	history := tailLines(readFileOrEmpty(s.historyPath()), consolidationWindow)
	if len(history) == 0 {
		return nil
	}
	existing := strings.TrimSpace(readFileOrEmpty(s.memoryPath()))
	if existing == "" {
		existing = "(empty)"
	}

	prompt := fmt.Sprintf(`You maintain the agent's long-term memory document.

Existing memory document:
%s

Recent conversation history:
%s

Rewrite the complete memory document. Preserve facts that are still true, add newly durable facts from the recent history, and drop facts that have become stale. Return only the full replacement document.`,
		existing, strings.Join(history, "\n"))

	result, err := s.Summarizer.Summarize(ctx, prompt)
	if err != nil {
		return fmt.Errorf("summarize history: %w", err)
	}
	doc := stripCodeFence(result)
	if strings.TrimSpace(doc) == "" {
		return fmt.Errorf("summarizer returned empty document")
	}

	if err := os.WriteFile(s.memoryPath(), []byte(doc+"\n"), 0o644); err != nil {
		return fmt.Errorf("write memory document: %w", err)
	}
	return nil
}

func readFileOrEmpty(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

func tailLines(text string, n int) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}

// stripCodeFence removes surrounding markdown fence markers the model may
// wrap the document in.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		trimmed = trimmed[idx+1:]
	} else {
		trimmed = strings.TrimPrefix(trimmed, "```")
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
