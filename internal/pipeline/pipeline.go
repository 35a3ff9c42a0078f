// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline wires extraction, correction requests, validation,
// and patching into one correction pass over an HTML document. The pass
// is pure in-memory: no filesystem or network state beyond the backend
// calls, so callers (CLI, HTTP API, tests) share identical semantics.
//
// See docs/ARCHITECTURE.md § Pipeline.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/copyedit-engine/internal/extract"
	"github.com/pdiddy/copyedit-engine/internal/patch"
	"github.com/pdiddy/copyedit-engine/internal/request"
	"github.com/pdiddy/copyedit-engine/internal/validate"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// RunOptions configures one correction pass.
type RunOptions struct {
	// HTML is the document to correct, a full document or a fragment.
	HTML string

	// Task selects the correction mode and its thresholds.
	Task types.Task

	// Backend generates corrections. Ignored when Custom is set.
	Backend request.Backend

	// Custom supplies explicit changes instead of calling the backend.
	// A change with SegmentID 0 is resolved to the first modifiable
	// segment whose extracted text contains its Find string.
	Custom []types.ProposedChange

	// SkipValidation bypasses the safety gates. Only meaningful for
	// caller-curated custom changes.
	SkipValidation bool

	// Config carries the stage settings. The zero value gets defaults.
	Config types.PipelineConfig
}

// Run executes one correction pass and returns the mutated document
// with its edit ledger. Progress and warnings go to w. Empty input and
// zero proposed changes are no-op successes, not errors.
func Run(ctx context.Context, opts RunOptions, w io.Writer) (*types.CorrectionResult, error) {
	cfg := opts.Config
	if cfg.Grammar.SimilarityCeiling == 0 {
		cfg = types.DefaultPipelineConfig()
	}

	segments, doc, err := extract.Extract(opts.HTML)
	if err != nil {
		return nil, fmt.Errorf("extracting segments: %w", err)
	}

	modifiable := make([]types.TextSegment, 0, len(segments))
	for _, s := range segments {
		if s.Modifiable {
			modifiable = append(modifiable, s)
		}
	}
	fmt.Fprintf(w, "extracted %d segments (%d protected)\n", len(segments), len(segments)-len(modifiable))

	if len(segments) == 0 {
		return emptyResult(opts.HTML), nil
	}

	var changes []types.ProposedChange
	switch {
	case len(opts.Custom) > 0:
		changes = resolveCustom(opts.Custom, segments, w)
	case opts.Backend == nil:
		return nil, fmt.Errorf("no backend configured and no custom changes supplied")
	default:
		changes, err = request.Correct(ctx, opts.Backend, opts.Task, modifiable, cfg, w)
		if err != nil {
			return nil, err
		}
	}
	fmt.Fprintf(w, "proposed %d changes\n", len(changes))

	byID := make(map[int]types.TextSegment, len(segments))
	for _, s := range segments {
		byID[s.ID] = s
	}

	// Every change passes the gates or is held for manual review; held
	// changes are surfaced, never dropped.
	taskCfg := cfg.ForTask(opts.Task)
	skipped := []types.SkippedEdit{}
	var applicable []types.ProposedChange
	for _, c := range changes {
		if opts.SkipValidation {
			applicable = append(applicable, c)
			continue
		}
		verdict := validate.Validate(c, byID[c.SegmentID], taskCfg)
		if !verdict.AutoApply() {
			skipped = append(skipped, types.SkippedEdit{
				SegmentID:   c.SegmentID,
				Find:        c.Find,
				Replace:     c.Replace,
				Reason:      c.Reason,
				ChangeType:  c.ChangeType,
				FailedGates: verdict.FailedGates,
			})
			continue
		}
		applicable = append(applicable, c)
	}

	led, err := patch.Apply(doc, applicable)
	if err != nil {
		return nil, fmt.Errorf("patching document: %w", err)
	}

	html, err := doc.Serialize()
	if err != nil {
		return nil, fmt.Errorf("serializing document: %w", err)
	}

	stats := led.Stats()
	fmt.Fprintf(w, "applied %d, failed %d, review %d\n", stats.Applied, stats.Failed, len(skipped))

	applied := led.Applied
	if applied == nil {
		applied = []types.AppliedEdit{}
	}
	failed := led.Failed
	if failed == nil {
		failed = []types.FailedEdit{}
	}

	return &types.CorrectionResult{
		HTML:         html,
		AppliedEdits: applied,
		FailedEdits:  failed,
		SkippedEdits: skipped,
		Stats:        stats,
	}, nil
}

func emptyResult(html string) *types.CorrectionResult {
	return &types.CorrectionResult{
		HTML:         html,
		AppliedEdits: []types.AppliedEdit{},
		FailedEdits:  []types.FailedEdit{},
		SkippedEdits: []types.SkippedEdit{},
	}
}

// resolveCustom fills in missing segment ids on caller-supplied changes.
// Resolution scans the extraction-time snapshots of modifiable segments;
// the patcher re-checks the live text at apply time.
func resolveCustom(custom []types.ProposedChange, segments []types.TextSegment, w io.Writer) []types.ProposedChange {
	resolved := make([]types.ProposedChange, 0, len(custom))
	for _, c := range custom {
		if c.ChangeType == "" {
			c.ChangeType = "custom"
		}
		if c.SegmentID == 0 {
			for _, s := range segments {
				if s.Modifiable && strings.Contains(s.Text, c.Find) {
					c.SegmentID = s.ID
					break
				}
			}
			if c.SegmentID == 0 {
				fmt.Fprintf(w, "warning: no modifiable segment contains %q\n", c.Find)
			}
		}
		resolved = append(resolved, c)
	}
	return resolved
}
