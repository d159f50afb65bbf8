package ai

import (
	"fmt"

	"github.com/flitsinc/go-llms/anthropic"
	"github.com/flitsinc/go-llms/google"
	"github.com/flitsinc/go-llms/llms"
	"github.com/flitsinc/go-llms/openai"
)

type Config struct {
	Provider string
	Model    string
	APIKey   string
}

// Client wraps a configured model provider. The turn orchestrator drives the
// provider round by round; memory consolidation goes through a separate
// tool-free LLM session.
type Client struct {
	provider   llms.Provider
	summarizer *llms.LLM
	config     Config
}

func NewClient(cfg Config) (*Client, error) {
	provider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	summaryProvider, err := newProvider(cfg)
	if err != nil {
		return nil, err
	}
	return &Client{
		provider:   provider,
		summarizer: llms.New(summaryProvider),
		config:     cfg,
	}, nil
}

// Model returns the provider used for turn generation rounds.
func (c *Client) Model() llms.Provider {
	if c == nil {
		return nil
	}
	return c.provider
}

func newProvider(cfg Config) (llms.Provider, error) {
	if cfg.Provider == "" {
		return nil, fmt.Errorf("llm provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}

	switch cfg.Provider {
	case "openai-responses":
		return openai.NewResponsesAPI(cfg.APIKey, cfg.Model), nil
	case "openai-chat":
		return openai.NewChatCompletionsAPI(cfg.APIKey, cfg.Model), nil
	case "anthropic":
		model := anthropic.New(cfg.APIKey, cfg.Model)
		model.WithMaxTokens(8192)
		return model, nil
	case "google":
		return google.New(cfg.Model).WithGeminiAPI(cfg.APIKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
