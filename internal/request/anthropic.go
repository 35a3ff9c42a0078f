// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package request

import (
	"context"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// AnthropicBackend calls the Anthropic messages API. Transport retries
// are delegated to the SDK.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int
}

// NewAnthropicBackend builds an Anthropic backend from config.
func NewAnthropicBackend(cfg types.AIConfig) *AnthropicBackend {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	return &AnthropicBackend{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// Name identifies the backend in warnings and errors.
func (b *AnthropicBackend) Name() string { return "anthropic" }

// Complete sends one system+user exchange and returns the raw reply text.
func (b *AnthropicBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	message, err := b.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: int64(b.maxTokens),
		System: []anthropic.TextBlockParam{
			{Text: system},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &BackendError{Status: apiErr.StatusCode, Body: apiErr.Error()}
		}
		return "", fmt.Errorf("anthropic: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("anthropic: no text content in response")
}
