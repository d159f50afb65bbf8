package agenttools

import (
	"strings"

	llmtools "github.com/flitsinc/go-llms/tools"

	"github.com/flitsinc/agentd/internal/outbound"
)

type SendMessageParams struct {
	Channel string `json:"channel" description:"Destination channel tag (e.g. feishu, discord)"`
	ChatID  string `json:"chat_id" description:"Destination chat or group identifier"`
	Content string `json:"content" description:"Message content to deliver"`
}

// SendMessageTool enqueues a message for asynchronous delivery to an
// external channel. Delivery never blocks the turn that produced it.
func SendMessageTool(queue *outbound.Queue) llmtools.Tool {
	return llmtools.Func(
		"SendMessage",
		"Send a message to a chat on another channel; delivery happens asynchronously",
		"send_message",
		func(r llmtools.Runner, p SendMessageParams) llmtools.Result {
			if queue == nil {
				return llmtools.Errorf("outbound queue unavailable")
			}
			channel := strings.TrimSpace(p.Channel)
			if channel == "" {
				return llmtools.Errorf("channel is required")
			}
			chatID := strings.TrimSpace(p.ChatID)
			if chatID == "" {
				return llmtools.Errorf("chat_id is required")
			}
			content := strings.TrimSpace(p.Content)
			if content == "" {
				return llmtools.Errorf("content is required")
			}

			queue.Push(outbound.Message{Channel: channel, ChatID: chatID, Content: content})
			return llmtools.Success(map[string]any{
				"status":  "queued",
				"channel": channel,
				"chat_id": chatID,
			})
		},
	)
}
