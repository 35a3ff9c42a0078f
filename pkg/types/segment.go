// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the copyedit-engine
// pipeline: extracted text segments, proposed changes, validation verdicts,
// the applied-edit ledger, and stage configuration.
//
// See docs/ARCHITECTURE.md § Data Structures.
package types

import (
	"fmt"
	"strings"
)

// Task selects the correction mode. Each task carries its own prompt
// instructions, batch size, and safety-gate thresholds.
type Task string

const (
	// TaskGrammar fixes spelling, grammar, and punctuation without
	// changing tone or meaning.
	TaskGrammar Task = "grammar"

	// TaskEngagement rewrites copy for stronger engagement while staying
	// within the safety gates. Looser similarity, tighter batches.
	TaskEngagement Task = "engagement"
)

// ParseTask converts a user-supplied task name into a Task.
// "engagement-optimization" is accepted as an alias for engagement.
func ParseTask(s string) (Task, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "grammar":
		return TaskGrammar, nil
	case "engagement", "engagement-optimization":
		return TaskEngagement, nil
	default:
		return "", fmt.Errorf("unknown task %q (want grammar or engagement)", s)
	}
}

// TextSegment is one addressable run of text extracted from a document.
// Segments are immutable snapshots: Text holds the content at extraction
// time and is never updated, even after the live document changes.
type TextSegment struct {
	// ID is a sequence number assigned in document order, unique and
	// stable within one extraction pass.
	ID int `json:"id" yaml:"id"`

	// ContainerTag is the tag of the nearest enclosing element
	// (e.g. "h1", "p", "li", "a", "footer").
	ContainerTag string `json:"containerTag" yaml:"containerTag"`

	// Text is the trimmed textual content at extraction time.
	Text string `json:"text" yaml:"text"`

	// Modifiable is false for segments classified as legal or footer
	// content. Protected segments are never sent to the corrector.
	Modifiable bool `json:"modifiable" yaml:"modifiable"`
}

// IsHeadingTag reports whether tag names a heading-type container.
// Heading segments get a tighter word-count gate than body text.
func IsHeadingTag(tag string) bool {
	switch strings.ToLower(tag) {
	case "h1", "h2", "h3", "h4", "h5", "h6", "title":
		return true
	}
	return false
}
