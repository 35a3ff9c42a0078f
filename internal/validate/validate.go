// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate applies the safety gates that decide whether a
// proposed edit may be auto-applied or needs human review. Gates are
// computed independently; any failing gate holds the change back, and
// the verdict always names the gates that failed.
//
// See docs/ARCHITECTURE.md § Validation.
package validate

import (
	"strings"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// Validate runs every gate on one change against its originating
// segment. Thresholds come from the task-keyed config.
func Validate(change types.ProposedChange, segment types.TextSegment, cfg types.TaskConfig) types.ValidationVerdict {
	var failed []types.GateID

	if !similarityInRange(change.Find, change.Replace, cfg) {
		failed = append(failed, types.GateSimilarity)
	}
	if len(NewFacts(change.Find, change.Replace)) > 0 {
		failed = append(failed, types.GateNewFacts)
	}
	if !wordDeltaAllowed(change.Find, change.Replace, segment.ContainerTag, cfg) {
		failed = append(failed, types.GateWordCount)
	}
	if !lengthRatioAllowed(change.Find, change.Replace, cfg) {
		failed = append(failed, types.GateLengthChange)
	}

	return types.ValidationVerdict{
		Passed:      len(failed) == 0,
		FailedGates: failed,
	}
}

// similarityInRange checks floor <= similarity < ceiling. A similarity
// at or above the ceiling is an identity change, not a fix; below the
// floor the edit is too different to apply unreviewed.
func similarityInRange(find, replace string, cfg types.TaskConfig) bool {
	sim := Similarity(find, replace)
	return sim >= cfg.SimilarityFloor && sim < cfg.SimilarityCeiling
}

// wordDeltaAllowed bounds the word-count change. Headings get the
// tighter allowance.
func wordDeltaAllowed(find, replace, containerTag string, cfg types.TaskConfig) bool {
	allowed := cfg.MaxWordDelta
	if types.IsHeadingTag(containerTag) {
		allowed = cfg.MaxHeadingWordDelta
	}
	delta := len(strings.Fields(replace)) - len(strings.Fields(find))
	if delta < 0 {
		delta = -delta
	}
	return delta <= allowed
}

// lengthRatioAllowed bounds |len(replace)-len(find)| / len(find).
// An empty find cannot be ratioed and fails outright; normalization
// upstream drops empty finds before they get here.
func lengthRatioAllowed(find, replace string, cfg types.TaskConfig) bool {
	fl := len([]rune(find))
	if fl == 0 {
		return false
	}
	rl := len([]rune(replace))
	diff := rl - fl
	if diff < 0 {
		diff = -diff
	}
	return float64(diff)/float64(fl) <= cfg.MaxLengthRatio
}
