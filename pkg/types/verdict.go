// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// GateID identifies one safety gate in validation verdicts. The values are
// the wire format surfaced to callers and review UIs.
type GateID string

const (
	// GateSimilarity rejects changes whose find/replace similarity falls
	// outside the task's allowed band: near-identical pairs are not a fix,
	// near-disjoint pairs are not a safe automatic edit.
	GateSimilarity GateID = "SIMILARITY_OUT_OF_RANGE"

	// GateNewFacts rejects changes introducing numbers, email addresses,
	// or URLs that are absent from the original text.
	GateNewFacts GateID = "NEW_FACTS_DETECTED"

	// GateWordCount rejects changes whose word-count delta exceeds the
	// allowance for the segment's container type.
	GateWordCount GateID = "WORD_COUNT_EXCEEDED"

	// GateLengthChange rejects changes whose relative length change
	// exceeds the task's ceiling.
	GateLengthChange GateID = "LENGTH_CHANGE_TOO_LARGE"
)

// ValidationVerdict is the result of running all gates on one change.
// It always names the failing gates so a review surface can explain
// why an edit needs a human decision.
type ValidationVerdict struct {
	// Passed is true when every gate accepted the change.
	Passed bool `json:"passed" yaml:"passed"`

	// FailedGates lists the gates that rejected the change. Empty when
	// Passed is true.
	FailedGates []GateID `json:"failedGates,omitempty" yaml:"failedGates,omitempty"`
}

// AutoApply reports whether the change may be applied without review.
func (v ValidationVerdict) AutoApply() bool {
	return v.Passed
}
