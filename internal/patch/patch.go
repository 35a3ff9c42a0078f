// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package patch applies validated changes to the live document tree and
// produces the edit ledger. It is the pipeline's only mutator: every
// write goes through the Document arena, one segment at a time, after
// all concurrent I/O has finished.
//
// See docs/ARCHITECTURE.md § Patching.
package patch

import (
	"fmt"
	"strings"

	"github.com/pdiddy/copyedit-engine/internal/extract"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// Ledger collects the terminal records of one patch pass.
type Ledger struct {
	Applied []types.AppliedEdit
	Failed  []types.FailedEdit
}

// Stats summarizes the ledger. Total counts attempted applications:
// Total == Applied + Failed.
func (l Ledger) Stats() types.Stats {
	return types.Stats{
		Total:   len(l.Applied) + len(l.Failed),
		Applied: len(l.Applied),
		Failed:  len(l.Failed),
	}
}

// Apply applies already-validated changes to the document and returns
// the ledger. Changes for one segment compose: each operates on the
// segment's current live text, so an earlier change can remove the text
// a later change expected; the later change then fails with "text not
// found" and processing continues.
//
// Replacement is first-occurrence only. Context snippets reflect the
// segment text at the moment each change applied.
func Apply(doc *extract.Document, changes []types.ProposedChange) (Ledger, error) {
	var led Ledger

	// Group by segment, preserving change order within a segment.
	var order []int
	bySegment := make(map[int][]types.ProposedChange)
	for _, c := range changes {
		if _, ok := bySegment[c.SegmentID]; !ok {
			order = append(order, c.SegmentID)
		}
		bySegment[c.SegmentID] = append(bySegment[c.SegmentID], c)
	}

	for _, id := range order {
		current, ok := doc.Text(id)
		if !ok {
			for _, c := range bySegment[id] {
				led.Failed = append(led.Failed, failedEdit(c, "segment not found"))
			}
			continue
		}
		original := current

		for _, c := range bySegment[id] {
			if c.Find == "" {
				led.Failed = append(led.Failed, failedEdit(c, "empty find"))
				continue
			}
			idx := strings.Index(current, c.Find)
			if idx < 0 {
				led.Failed = append(led.Failed, failedEdit(c, "text not found"))
				continue
			}

			current = current[:idx] + c.Replace + current[idx+len(c.Find):]

			snippet, hlStart, hlEnd := extractContext(current, idx, idx+len(c.Replace))
			led.Applied = append(led.Applied, types.AppliedEdit{
				SegmentID:    c.SegmentID,
				Find:         c.Find,
				Replace:      c.Replace,
				Reason:       c.Reason,
				ChangeType:   c.ChangeType,
				Context:      snippet,
				ContextStart: hlStart,
				ContextEnd:   hlEnd,
			})
		}

		if current != original {
			if err := doc.SetText(id, current); err != nil {
				return led, fmt.Errorf("writing segment %d: %w", id, err)
			}
		}
	}

	return led, nil
}

func failedEdit(c types.ProposedChange, reason string) types.FailedEdit {
	return types.FailedEdit{
		SegmentID:     c.SegmentID,
		Find:          c.Find,
		Replace:       c.Replace,
		Reason:        c.Reason,
		ChangeType:    c.ChangeType,
		FailureReason: reason,
	}
}
