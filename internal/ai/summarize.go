package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/flitsinc/go-llms/content"
	"github.com/flitsinc/go-llms/llms"
)

// Summarize makes a single model call with no tool access and returns the
// full text response.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	if c == nil || c.summarizer == nil {
		return "", fmt.Errorf("summarizer unavailable")
	}

	llmClient := c.summarizer
	prev := llmClient.SystemPrompt
	llmClient.SystemPrompt = func() content.Content {
		return content.FromText("You distill conversation history into durable memory. Be concise and factual.")
	}
	defer func() {
		llmClient.SystemPrompt = prev
	}()

	updates := llmClient.ChatUsingMessages(ctx, []llms.Message{
		{Role: "user", Content: content.FromText(prompt)},
	})

	var sb strings.Builder
	for update := range updates {
		if textUpdate, ok := update.(llms.TextUpdate); ok {
			sb.WriteString(textUpdate.Text)
		}
	}
	if err := llmClient.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(sb.String()), nil
}
