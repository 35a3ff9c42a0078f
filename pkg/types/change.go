// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ProposedChange is one candidate edit against a segment, either returned
// by the correction backend or supplied directly by a caller.
type ProposedChange struct {
	// SegmentID references TextSegment.ID. Zero means unresolved; the
	// pipeline resolves caller-supplied edits to the first segment whose
	// text contains Find.
	SegmentID int `json:"segmentId" yaml:"segmentId"`

	// Find is the exact substring expected in the segment's text.
	// A change with an empty Find is invalid and dropped on receipt;
	// a Find that cannot be located at apply time is an expected
	// rejection, not an error.
	Find string `json:"find" yaml:"find"`

	// Replace is the replacement substring.
	Replace string `json:"replace" yaml:"replace"`

	// Reason is a free-text explanation of the edit.
	Reason string `json:"reason,omitempty" yaml:"reason,omitempty"`

	// ChangeType is a coarse category: spelling, grammar, engagement, ...
	ChangeType string `json:"changeType,omitempty" yaml:"changeType,omitempty"`
}
