// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/pdiddy/copyedit-engine/internal/request"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// scriptedBackend returns one canned reply and records every prompt.
type scriptedBackend struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (b *scriptedBackend) Name() string { return "scripted" }

func (b *scriptedBackend) Complete(_ context.Context, _, prompt string) (string, error) {
	b.mu.Lock()
	b.prompts = append(b.prompts, prompt)
	b.mu.Unlock()
	if b.err != nil {
		return "", b.err
	}
	return b.reply, nil
}

func containsGate(gates []types.GateID, want types.GateID) bool {
	for _, g := range gates {
		if g == want {
			return true
		}
	}
	return false
}

func TestRunGrammarEndToEnd(t *testing.T) {
	html := `<div>
		<h1>Welcome</h1>
		<p>We recieve your order within two days.</p>
		<footer>© 2024 All rights reserved</footer>
	</div>`

	backend := &scriptedBackend{
		reply: `[{"id":2,"find":"We recieve your order","replace":"We receive your order","reason":"spelling"}]`,
	}

	var progress bytes.Buffer
	result, err := Run(context.Background(), RunOptions{
		HTML:    html,
		Task:    types.TaskGrammar,
		Backend: backend,
	}, &progress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.AppliedEdits) != 1 {
		t.Fatalf("got %d applied edits, want 1: %+v", len(result.AppliedEdits), result)
	}
	if !strings.Contains(result.HTML, "We receive your order") {
		t.Errorf("correction missing from output:\n%s", result.HTML)
	}
	if strings.Contains(result.HTML, "recieve") {
		t.Errorf("typo survived in output:\n%s", result.HTML)
	}
	if result.Stats.Total != 1 || result.Stats.Applied != 1 || result.Stats.Failed != 0 {
		t.Errorf("stats = %+v, want 1/1/0", result.Stats)
	}

	// Protected footer text must never reach the backend.
	for _, prompt := range backend.prompts {
		if strings.Contains(prompt, "All rights reserved") || strings.Contains(prompt, "© 2024") {
			t.Errorf("protected segment leaked into prompt:\n%s", prompt)
		}
	}

	if !strings.Contains(progress.String(), "extracted 3 segments (1 protected)") {
		t.Errorf("unexpected progress output: %q", progress.String())
	}
}

func TestRunComposedChanges(t *testing.T) {
	cfg := types.DefaultPipelineConfig()
	cfg.Grammar.SimilarityFloor = 0.70

	backend := &scriptedBackend{
		reply: `[
			{"id":1,"find":"beautyyy","replace":"beauty","reason":"spelling"},
			{"id":1,"find":"natureee","replace":"nature","reason":"spelling"}
		]`,
	}

	result, err := Run(context.Background(), RunOptions{
		HTML:    "<p>Discover the beautyyy of natureee</p>",
		Task:    types.TaskGrammar,
		Backend: backend,
		Config:  cfg,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.AppliedEdits) != 2 {
		t.Fatalf("got %d applied edits, want 2: %+v", len(result.AppliedEdits), result.AppliedEdits)
	}
	if !strings.Contains(result.HTML, "Discover the beauty of nature") {
		t.Errorf("composed corrections missing:\n%s", result.HTML)
	}
	if result.Stats.Total != 2 || result.Stats.Applied != 2 {
		t.Errorf("stats = %+v, want 2/2/0", result.Stats)
	}
}

func TestRunHoldsUnsafeChangeForReview(t *testing.T) {
	backend := &scriptedBackend{
		reply: `[{"id":1,"find":"Buy now","replace":"Buy now for $99","reason":"urgency"}]`,
	}

	result, err := Run(context.Background(), RunOptions{
		HTML:    "<p>Buy now</p>",
		Task:    types.TaskGrammar,
		Backend: backend,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.AppliedEdits) != 0 {
		t.Fatalf("unsafe change was applied: %+v", result.AppliedEdits)
	}
	if len(result.SkippedEdits) != 1 {
		t.Fatalf("got %d skipped edits, want 1", len(result.SkippedEdits))
	}
	if !containsGate(result.SkippedEdits[0].FailedGates, types.GateNewFacts) {
		t.Errorf("failed gates %v missing %s", result.SkippedEdits[0].FailedGates, types.GateNewFacts)
	}
	if !strings.Contains(result.HTML, "Buy now") || strings.Contains(result.HTML, "$99") {
		t.Errorf("document modified despite review hold:\n%s", result.HTML)
	}
	if result.Stats.Total != 0 {
		t.Errorf("review holds must not count as attempts: %+v", result.Stats)
	}
}

func TestRunEmptyInput(t *testing.T) {
	backend := &scriptedBackend{reply: "[]"}

	for _, html := range []string{"", "   ", "<div></div>"} {
		result, err := Run(context.Background(), RunOptions{
			HTML:    html,
			Task:    types.TaskGrammar,
			Backend: backend,
		}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("Run(%q): %v", html, err)
		}
		if result.AppliedEdits == nil || result.FailedEdits == nil || result.SkippedEdits == nil {
			t.Errorf("Run(%q): ledger slices must be non-nil", html)
		}
		if result.Stats.Total != 0 {
			t.Errorf("Run(%q): stats = %+v, want zero", html, result.Stats)
		}
	}
	if len(backend.prompts) != 0 {
		t.Errorf("backend called %d times for empty documents", len(backend.prompts))
	}
}

func TestRunCustomChanges(t *testing.T) {
	result, err := Run(context.Background(), RunOptions{
		HTML: "<p>We recieve your order</p>",
		Task: types.TaskGrammar,
		Custom: []types.ProposedChange{
			{Find: "We recieve your order", Replace: "We receive your order", Reason: "spelling"},
		},
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.AppliedEdits) != 1 {
		t.Fatalf("got %d applied edits, want 1: %+v", len(result.AppliedEdits), result)
	}
	edit := result.AppliedEdits[0]
	if edit.SegmentID != 1 {
		t.Errorf("custom change resolved to segment %d, want 1", edit.SegmentID)
	}
	if edit.ChangeType != "custom" {
		t.Errorf("changeType = %q, want custom", edit.ChangeType)
	}
	if !strings.Contains(result.HTML, "We receive your order") {
		t.Errorf("custom edit missing from output:\n%s", result.HTML)
	}
}

func TestRunCustomChangeUnresolved(t *testing.T) {
	var progress bytes.Buffer
	result, err := Run(context.Background(), RunOptions{
		HTML: "<p>hello</p>",
		Task: types.TaskGrammar,
		Custom: []types.ProposedChange{
			{Find: "zzzzzzzzzz", Replace: "zzzzzzzzzs"},
		},
	}, &progress)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.FailedEdits) != 1 {
		t.Fatalf("got %d failed edits, want 1: %+v", len(result.FailedEdits), result)
	}
	if result.Stats.Failed != 1 || result.Stats.Total != 1 {
		t.Errorf("stats = %+v, want total 1, failed 1", result.Stats)
	}
	if !strings.Contains(progress.String(), "no modifiable segment") {
		t.Errorf("unresolved custom change not logged: %q", progress.String())
	}
}

func TestRunSkipValidation(t *testing.T) {
	// "5 days" introduces a digit absent from the find text, which the
	// new-facts gate would normally hold for review.
	custom := []types.ProposedChange{
		{Find: "two days", Replace: "5 days"},
	}

	gated, err := Run(context.Background(), RunOptions{
		HTML:   "<p>Delivery takes two days.</p>",
		Task:   types.TaskGrammar,
		Custom: custom,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(gated.SkippedEdits) != 1 {
		t.Fatalf("got %d skipped edits with gates on, want 1: %+v", len(gated.SkippedEdits), gated)
	}

	forced, err := Run(context.Background(), RunOptions{
		HTML:           "<p>Delivery takes two days.</p>",
		Task:           types.TaskGrammar,
		Custom:         custom,
		SkipValidation: true,
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(forced.AppliedEdits) != 1 || len(forced.SkippedEdits) != 0 {
		t.Fatalf("got %d applied / %d skipped with gates off, want 1/0",
			len(forced.AppliedEdits), len(forced.SkippedEdits))
	}
	if !strings.Contains(forced.HTML, "5 days") {
		t.Errorf("forced edit missing from output:\n%s", forced.HTML)
	}
}

func TestRunNoBackendNoCustom(t *testing.T) {
	_, err := Run(context.Background(), RunOptions{
		HTML: "<p>hello there friend</p>",
		Task: types.TaskGrammar,
	}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("Run succeeded without a backend or custom changes")
	}
}

func TestRunBackendFatalError(t *testing.T) {
	backend := &scriptedBackend{
		err: &request.BackendError{Status: 401, Body: "bad key"},
	}

	_, err := Run(context.Background(), RunOptions{
		HTML:    "<p>hello there friend</p>",
		Task:    types.TaskGrammar,
		Backend: backend,
	}, &bytes.Buffer{})
	if err == nil {
		t.Fatal("fatal backend error did not abort the run")
	}
}
