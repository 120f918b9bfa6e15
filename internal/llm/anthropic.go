// Package llm wraps the Anthropic API for the enrichment pipeline's concept
// extraction and category summarization calls. It exposes the narrow
// interface internal/enrich needs — a single Completer method — rather
// than the full SDK surface.
package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
)

// Config holds the connection and generation settings for the Claude client.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int64
	Temperature float64
}

// DefaultConfig returns sane generation defaults; APIKey/BaseURL are read
// from the environment by the composition root, not defaulted here.
func DefaultConfig() Config {
	return Config{
		Model:       "claude-sonnet-4-5-20250929",
		MaxTokens:   4096,
		Temperature: 0.2,
	}
}

// Client is a thin wrapper around anthropic.Client for single-turn,
// system-prompted completions — the shape every enrichment call needs.
type Client struct {
	config Config
	client anthropic.Client
}

// New constructs a Client. Resilience (timeout/retry/circuit/bulkhead) is
// applied by the caller via the LLM_API resilience profile, not here —
// this type only knows how to talk to the API.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Client{config: cfg, client: anthropic.NewClient(opts...)}
}

// Complete sends a single system+user turn and returns the model's text
// response along with the model identifier actually used, for traceability
// in extraction records.
func (c *Client) Complete(ctx context.Context, system, user string) (text string, model string, err error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.config.Model),
		MaxTokens: c.config.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(user)),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if c.config.Temperature > 0 {
		params.Temperature = param.NewOpt(c.config.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", "", fmt.Errorf("anthropic completion: %w", err)
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return text, string(msg.Model), nil
}
