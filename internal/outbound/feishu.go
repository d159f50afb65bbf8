package outbound

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FeishuSender posts messages to a Feishu group webhook.
type FeishuSender struct {
	WebhookURL string
	HTTPClient *http.Client
}

func NewFeishuSender(webhookURL string) *FeishuSender {
	return &FeishuSender{
		WebhookURL: webhookURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *FeishuSender) Send(ctx context.Context, m Message) error {
	payload, err := json.Marshal(map[string]any{
		"receive_id": m.ChatID,
		"msg_type":   "text",
		"content":    map[string]string{"text": m.Content},
	})
	if err != nil {
		return fmt.Errorf("encode feishu payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build feishu request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("post to feishu: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("feishu webhook returned %d: %s", resp.StatusCode, body)
	}
	return nil
}
