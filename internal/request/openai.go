// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package request

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// OpenAIBackend calls the OpenAI chat completions API.
type OpenAIBackend struct {
	client     *openai.Client
	model      string
	maxTokens  int
	maxRetries int
}

// NewOpenAIBackend builds an OpenAI backend from config. The HTTP
// timeout applies per request; rate limits and server errors are
// retried with exponential backoff up to MaxRetries.
func NewOpenAIBackend(cfg types.AIConfig, httpCfg types.HTTPConfig) *OpenAIBackend {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	clientCfg.HTTPClient = &http.Client{Timeout: httpCfg.Timeout}

	return &OpenAIBackend{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		maxTokens:  cfg.MaxTokens,
		maxRetries: cfg.MaxRetries,
	}
}

// Name identifies the backend in warnings and errors.
func (b *OpenAIBackend) Name() string { return "openai" }

// Complete sends one system+user exchange and returns the raw reply text.
func (b *OpenAIBackend) Complete(ctx context.Context, system, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	var resp openai.ChatCompletionResponse
	for attempt := 1; ; attempt++ {
		var err error
		resp, err = b.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		berr := asBackendError(err)
		if berr == nil {
			return "", fmt.Errorf("openai: %w", err)
		}
		if !berr.Retryable() || attempt > b.maxRetries {
			return "", berr
		}

		backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// asBackendError maps SDK error types onto BackendError. Transport
// errors (DNS, timeout) have no status and map to nil.
func asBackendError(err error) *BackendError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &BackendError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &BackendError{Status: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return nil
}
