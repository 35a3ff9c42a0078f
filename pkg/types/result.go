// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AppliedEdit records one change that was applied to the document.
type AppliedEdit struct {
	// SegmentID references the segment the edit was applied to.
	SegmentID int `json:"segmentId" yaml:"segmentId"`

	// Find and Replace are the original change strings.
	Find    string `json:"find" yaml:"find"`
	Replace string `json:"replace" yaml:"replace"`

	// Reason and ChangeType carry the change's explanation and category.
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ChangeType string `json:"changeType,omitempty" yaml:"changeType,omitempty"`

	// Context is a snippet of the segment text around the replaced span,
	// with ellipsis markers when truncated.
	Context string `json:"context" yaml:"context"`

	// ContextStart and ContextEnd locate the replaced span within
	// Context, for highlighting.
	ContextStart int `json:"contextStart" yaml:"contextStart"`
	ContextEnd   int `json:"contextEnd" yaml:"contextEnd"`
}

// FailedEdit records one change that could not be applied.
type FailedEdit struct {
	SegmentID  int    `json:"segmentId" yaml:"segmentId"`
	Find       string `json:"find" yaml:"find"`
	Replace    string `json:"replace" yaml:"replace"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ChangeType string `json:"changeType,omitempty" yaml:"changeType,omitempty"`

	// FailureReason explains why the edit failed (e.g. "text not found").
	FailureReason string `json:"failureReason" yaml:"failureReason"`
}

// SkippedEdit records one change held back for manual review. Skipped
// edits are never silently dropped; callers surface them for a human
// decision.
type SkippedEdit struct {
	SegmentID  int    `json:"segmentId" yaml:"segmentId"`
	Find       string `json:"find" yaml:"find"`
	Replace    string `json:"replace" yaml:"replace"`
	Reason     string `json:"reason,omitempty" yaml:"reason,omitempty"`
	ChangeType string `json:"changeType,omitempty" yaml:"changeType,omitempty"`

	// FailedGates lists the safety gates the change failed.
	FailedGates []GateID `json:"failedGates" yaml:"failedGates"`
}

// Stats summarizes one correction pass. Total counts attempted
// applications only: Total == Applied + Failed. Edits held for review
// are reported separately as SkippedEdits.
type Stats struct {
	Total   int `json:"total" yaml:"total"`
	Applied int `json:"applied" yaml:"applied"`
	Failed  int `json:"failed" yaml:"failed"`
}

// CorrectionResult is the output of one pipeline run: the mutated
// document plus the full edit ledger.
type CorrectionResult struct {
	// HTML is the serialized document after all applied edits.
	HTML string `json:"html" yaml:"html"`

	// AppliedEdits, FailedEdits, and SkippedEdits form the ledger.
	AppliedEdits []AppliedEdit `json:"appliedEdits" yaml:"appliedEdits"`
	FailedEdits  []FailedEdit  `json:"failedEdits" yaml:"failedEdits"`
	SkippedEdits []SkippedEdit `json:"skippedEdits" yaml:"skippedEdits"`

	// Stats summarizes the pass.
	Stats Stats `json:"stats" yaml:"stats"`
}
