// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package estimate previews the token usage and cost of a correction
// pass before any backend call is made. It batches segments exactly the
// way the requester does and counts tokens over the real prompts.
//
// See docs/ARCHITECTURE.md § Cost Estimation.
package estimate

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/shopspring/decimal"

	"github.com/pdiddy/copyedit-engine/internal/request"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

const (
	defaultEncoding         = "cl100k_base"
	defaultReplyTokens      = 60
	tokensPerMillionDivisor = 1_000_000
)

// tokenEncoder is the slice of the tiktoken API the estimator needs.
type tokenEncoder interface {
	Encode(text string, allowedSpecial, disallowedSpecial []string) []int
}

// getEncoding loads a tokenizer by encoding name. Tests override this
// to avoid fetching BPE data.
var getEncoding = func(name string) (tokenEncoder, error) {
	return tiktoken.GetEncoding(name)
}

// ModelPrice holds USD prices per one million tokens.
type ModelPrice struct {
	InputPerM  decimal.Decimal
	OutputPerM decimal.Decimal
}

// modelPrices maps model name prefixes to list prices, USD per 1M
// tokens. Longest prefix wins so dated variants resolve to their base
// model.
var modelPrices = map[string]ModelPrice{
	"gpt-4o":           {decimal.NewFromFloat(2.50), decimal.NewFromFloat(10.00)},
	"gpt-4o-mini":      {decimal.NewFromFloat(0.15), decimal.NewFromFloat(0.60)},
	"gpt-4-turbo":      {decimal.NewFromFloat(10.00), decimal.NewFromFloat(30.00)},
	"claude-opus-4":    {decimal.NewFromFloat(15.00), decimal.NewFromFloat(75.00)},
	"claude-sonnet-4":  {decimal.NewFromFloat(3.00), decimal.NewFromFloat(15.00)},
	"claude-3-5-haiku": {decimal.NewFromFloat(0.80), decimal.NewFromFloat(4.00)},
}

// Estimate is the token and cost preview for one correction pass.
type Estimate struct {
	Task             types.Task `json:"task" yaml:"task"`
	Model            string     `json:"model" yaml:"model"`
	Segments         int        `json:"segments" yaml:"segments"`
	Batches          int        `json:"batches" yaml:"batches"`
	PromptTokens     int        `json:"promptTokens" yaml:"promptTokens"`
	CompletionTokens int        `json:"completionTokens" yaml:"completionTokens"`
	TotalTokens      int        `json:"totalTokens" yaml:"totalTokens"`

	// BatchTokens holds the prompt token count of each batch, system
	// prompt included, in dispatch order.
	BatchTokens []int `json:"batchTokens" yaml:"batchTokens"`

	// Priced is false when the model has no entry in the price table;
	// the cost fields are zero in that case.
	Priced     bool            `json:"priced" yaml:"priced"`
	InputCost  decimal.Decimal `json:"inputCost" yaml:"inputCost"`
	OutputCost decimal.Decimal `json:"outputCost" yaml:"outputCost"`
	TotalCost  decimal.Decimal `json:"totalCost" yaml:"totalCost"`
}

// CostString formats the total estimated cost for display.
func (e *Estimate) CostString() string {
	if !e.Priced {
		return "unknown (no price data for " + e.Model + ")"
	}
	return "$" + e.TotalCost.StringFixed(4)
}

// New builds the estimate for correcting segments under a task. Only
// modifiable segments count; protected ones are filtered here the same
// way the pipeline filters them.
func New(segments []types.TextSegment, task types.Task, cfg types.PipelineConfig) (*Estimate, error) {
	var mods []types.TextSegment
	for _, s := range segments {
		if s.Modifiable {
			mods = append(mods, s)
		}
	}

	est := &Estimate{
		Task:     task,
		Model:    cfg.Request.Model,
		Segments: len(mods),
	}
	if len(mods) == 0 {
		return est, nil
	}

	encoding := cfg.Estimate.Encoding
	if encoding == "" {
		encoding = defaultEncoding
	}
	enc, err := getEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading encoding %q: %w", encoding, err)
	}

	systemTokens := len(enc.Encode(request.SystemPrompt(task), nil, nil))

	batches := request.Partition(mods, cfg.ForTask(task).BatchSize)
	est.Batches = len(batches)
	for _, batch := range batches {
		prompt, err := request.BatchPrompt(task, batch)
		if err != nil {
			return nil, fmt.Errorf("rendering batch prompt: %w", err)
		}
		n := systemTokens + len(enc.Encode(prompt, nil, nil))
		est.BatchTokens = append(est.BatchTokens, n)
		est.PromptTokens += n
	}

	replyTokens := cfg.Estimate.ReplyTokensPerSegment
	if replyTokens <= 0 {
		replyTokens = defaultReplyTokens
	}
	est.CompletionTokens = len(mods) * replyTokens
	est.TotalTokens = est.PromptTokens + est.CompletionTokens

	if price, ok := lookupPrice(cfg.Request.Model); ok {
		perM := decimal.NewFromInt(tokensPerMillionDivisor)
		est.Priced = true
		est.InputCost = price.InputPerM.Mul(decimal.NewFromInt(int64(est.PromptTokens))).Div(perM)
		est.OutputCost = price.OutputPerM.Mul(decimal.NewFromInt(int64(est.CompletionTokens))).Div(perM)
		est.TotalCost = est.InputCost.Add(est.OutputCost)
	}

	return est, nil
}

// lookupPrice finds the price entry whose key is the longest prefix of
// model.
func lookupPrice(model string) (ModelPrice, bool) {
	var (
		best    ModelPrice
		bestLen = -1
	)
	for prefix, price := range modelPrices {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best = price
			bestLen = len(prefix)
		}
	}
	return best, bestLen >= 0
}
