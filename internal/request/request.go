// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package request turns modifiable segments into proposed changes by
// batching them to a language-model completion API. Batches fire
// concurrently and fail independently: a timeout or garbled response
// voids one batch, while auth failures and persistent server errors
// abort the whole pass.
//
// See docs/ARCHITECTURE.md § Correction Requests.
package request

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// backoffBase controls the base duration for exponential backoff on
// transport-level retries. Tests override this to avoid real sleeps.
var backoffBase = 2 * time.Second

const defaultMaxAttempts = 5

// Backend generates one completion for a batch prompt. Each provider
// (OpenAI, Anthropic) implements this interface.
type Backend interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// NewBackend builds the completion backend for the configured provider.
func NewBackend(cfg types.RequestConfig) (Backend, error) {
	switch cfg.Provider {
	case types.ProviderOpenAI:
		return NewOpenAIBackend(cfg.AIConfig, cfg.HTTPConfig), nil
	case types.ProviderAnthropic:
		return NewAnthropicBackend(cfg.AIConfig), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want openai or anthropic)", cfg.Provider)
	}
}

// Correct partitions segments into task-sized batches, requests
// corrections for all batches concurrently, and merges the results into
// one deduplicated list sorted by segment id. Callers pass only
// modifiable segments. Warnings go to w.
func Correct(ctx context.Context, backend Backend, task types.Task, segments []types.TextSegment, cfg types.PipelineConfig, w io.Writer) ([]types.ProposedChange, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	batches := Partition(segments, cfg.ForTask(task).BatchSize)

	type batchResult struct {
		index   int
		changes []types.ProposedChange
		err     error
	}

	ch := make(chan batchResult, len(batches))
	var wg sync.WaitGroup

	for i, batch := range batches {
		wg.Add(1)
		go func(i int, batch []types.TextSegment) {
			defer wg.Done()
			changes, err := correctBatch(ctx, backend, task, batch, cfg.Request, w)
			ch <- batchResult{index: i, changes: changes, err: err}
		}(i, batch)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	// Await all batches even after a fatal error so no goroutine leaks.
	perBatch := make([][]types.ProposedChange, len(batches))
	var fatal error
	for br := range ch {
		if br.err != nil {
			if fatal == nil {
				fatal = br.err
			}
			continue
		}
		perBatch[br.index] = br.changes
	}
	if fatal != nil {
		return nil, fmt.Errorf("correction pass failed: %w", fatal)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge in dispatch order so dedup is deterministic: the first
	// batch to propose a given (segment, find) edit wins.
	type editKey struct {
		segmentID int
		find      string
	}
	seen := make(map[editKey]bool)
	var merged []types.ProposedChange
	for _, changes := range perBatch {
		for _, c := range changes {
			key := editKey{c.SegmentID, c.Find}
			if seen[key] {
				fmt.Fprintf(w, "warning: duplicate change for segment %d dropped (find %q)\n", c.SegmentID, c.Find)
				continue
			}
			seen[key] = true
			merged = append(merged, c)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].SegmentID < merged[j].SegmentID
	})
	return merged, nil
}

// correctBatch requests corrections for one batch. Each attempt ends in
// one of three states: parsed changes (success), a retryable parse
// failure (re-prompt with the error as feedback, up to the attempt
// ceiling), or a backend error. Fatal backend errors propagate; anything
// else voids the batch.
func correctBatch(ctx context.Context, backend Backend, task types.Task, batch []types.TextSegment, cfg types.RequestConfig, w io.Writer) ([]types.ProposedChange, error) {
	system := systemPrompt(task)
	base, err := renderPrompt(task, batch)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	prompt := base
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		raw, err := backend.Complete(ctx, system, prompt)
		if err != nil {
			if IsFatal(err) {
				return nil, fmt.Errorf("%s: %w", backend.Name(), err)
			}
			fmt.Fprintf(w, "warning: batch of %d voided: %s: %v\n", len(batch), backend.Name(), err)
			return nil, nil
		}

		changes, perr := parseChanges(raw, batch, task, w)
		if perr == nil {
			return changes, nil
		}

		fmt.Fprintf(w, "warning: unparseable response (attempt %d/%d): %v\n", attempt, maxAttempts, perr)
		if attempt < maxAttempts {
			prompt, err = renderFeedbackPrompt(base, raw, perr)
			if err != nil {
				return nil, fmt.Errorf("rendering feedback prompt: %w", err)
			}
		}
	}

	fmt.Fprintf(w, "warning: batch of %d voided after %d unparseable responses\n", len(batch), maxAttempts)
	return nil, nil
}

// Partition splits segments into batches of at most size. The
// estimator uses the same batching to preview token usage.
func Partition(segments []types.TextSegment, size int) [][]types.TextSegment {
	if size <= 0 {
		size = 1
	}
	var batches [][]types.TextSegment
	for start := 0; start < len(segments); start += size {
		end := start + size
		if end > len(segments) {
			end = len(segments)
		}
		batches = append(batches, segments[start:end])
	}
	return batches
}
