// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package patch

import (
	"strings"
	"testing"

	"github.com/pdiddy/copyedit-engine/internal/extract"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

func mustExtract(t *testing.T, markup string) *extract.Document {
	t.Helper()
	_, doc, err := extract.Extract(markup)
	if err != nil {
		t.Fatalf("Extract(%q): %v", markup, err)
	}
	return doc
}

func TestApplyFirstOccurrenceOnly(t *testing.T) {
	doc := mustExtract(t, "<p>test test test</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "test", Replace: "demo", ChangeType: "grammar"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Applied) != 1 || len(led.Failed) != 0 {
		t.Fatalf("got %d applied, %d failed, want 1/0", len(led.Applied), len(led.Failed))
	}

	text, ok := doc.Text(1)
	if !ok {
		t.Fatal("segment 1 missing after patch")
	}
	if text != "demo test test" {
		t.Errorf("got %q, want %q", text, "demo test test")
	}
}

func TestApplyComposesWithinSegment(t *testing.T) {
	doc := mustExtract(t, "<p>Discover the beautyyy of natureee</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "beautyyy", Replace: "beauty", ChangeType: "grammar"},
		{SegmentID: 1, Find: "natureee", Replace: "nature", ChangeType: "grammar"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Applied) != 2 {
		t.Fatalf("got %d applied edits, want 2", len(led.Applied))
	}

	text, _ := doc.Text(1)
	if text != "Discover the beauty of nature" {
		t.Errorf("got %q, want %q", text, "Discover the beauty of nature")
	}

	out, err := doc.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(out, "Discover the beauty of nature") {
		t.Errorf("serialized output missing corrected text: %q", out)
	}
}

func TestApplyTextNotFound(t *testing.T) {
	doc := mustExtract(t, "<p>hello world</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "goodbye", Replace: "farewell"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Applied) != 0 || len(led.Failed) != 1 {
		t.Fatalf("got %d applied, %d failed, want 0/1", len(led.Applied), len(led.Failed))
	}
	if led.Failed[0].FailureReason != "text not found" {
		t.Errorf("failure reason = %q, want %q", led.Failed[0].FailureReason, "text not found")
	}

	// The segment must be untouched.
	text, _ := doc.Text(1)
	if text != "hello world" {
		t.Errorf("segment modified on failed edit: %q", text)
	}
}

func TestApplyEarlierChangeRemovesMatch(t *testing.T) {
	doc := mustExtract(t, "<p>alpha beta</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "alpha beta", Replace: "gamma"},
		{SegmentID: 1, Find: "beta", Replace: "delta"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Applied) != 1 || len(led.Failed) != 1 {
		t.Fatalf("got %d applied, %d failed, want 1/1", len(led.Applied), len(led.Failed))
	}
	if led.Failed[0].Find != "beta" {
		t.Errorf("wrong change failed: %+v", led.Failed[0])
	}

	text, _ := doc.Text(1)
	if text != "gamma" {
		t.Errorf("got %q, want %q", text, "gamma")
	}
}

func TestApplyUnknownSegment(t *testing.T) {
	doc := mustExtract(t, "<p>hello</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 99, Find: "hello", Replace: "hi"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Failed) != 1 || led.Failed[0].FailureReason != "segment not found" {
		t.Fatalf("got %+v, want one segment-not-found failure", led.Failed)
	}
}

func TestApplyEmptyFind(t *testing.T) {
	doc := mustExtract(t, "<p>hello</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "", Replace: "hi"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Applied) != 0 || len(led.Failed) != 1 {
		t.Fatalf("empty find must fail, got %d applied", len(led.Applied))
	}

	text, _ := doc.Text(1)
	if text != "hello" {
		t.Errorf("segment modified by empty find: %q", text)
	}
}

func TestApplyNoChanges(t *testing.T) {
	doc := mustExtract(t, "<p>hello</p>")

	led, err := Apply(doc, nil)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	stats := led.Stats()
	if stats.Total != 0 || stats.Applied != 0 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want all zero", stats)
	}
}

func TestLedgerStats(t *testing.T) {
	doc := mustExtract(t, "<p>one two three</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "one", Replace: "1"},
		{SegmentID: 1, Find: "missing", Replace: "x"},
		{SegmentID: 1, Find: "three", Replace: "3"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	stats := led.Stats()
	if stats.Applied != 2 || stats.Failed != 1 {
		t.Fatalf("stats = %+v, want 2 applied, 1 failed", stats)
	}
	if stats.Total != stats.Applied+stats.Failed {
		t.Errorf("Total %d != Applied %d + Failed %d", stats.Total, stats.Applied, stats.Failed)
	}
}

func TestApplyContextOffsets(t *testing.T) {
	doc := mustExtract(t, "<p>The quick brown fox jumps over the lazyyy dog near the river</p>")

	led, err := Apply(doc, []types.ProposedChange{
		{SegmentID: 1, Find: "lazyyy", Replace: "lazy"},
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(led.Applied) != 1 {
		t.Fatalf("got %d applied edits, want 1", len(led.Applied))
	}

	edit := led.Applied[0]
	if edit.Context == "" {
		t.Fatal("context snippet is empty")
	}
	got := edit.Context[edit.ContextStart:edit.ContextEnd]
	if got != "lazy" {
		t.Errorf("context[%d:%d] = %q, want %q", edit.ContextStart, edit.ContextEnd, got, "lazy")
	}
}

func TestExtractContext(t *testing.T) {
	long := strings.Repeat("word ", 20) + "TARGET" + strings.Repeat(" tail", 20)
	start := strings.Index(long, "TARGET")
	end := start + len("TARGET")

	// --- long text, span in the middle ---
	snippet, hlStart, hlEnd := extractContext(long, start, end)
	if !strings.HasPrefix(snippet, "...") {
		t.Errorf("snippet missing leading ellipsis: %q", snippet)
	}
	if !strings.HasSuffix(snippet, "...") {
		t.Errorf("snippet missing trailing ellipsis: %q", snippet)
	}
	if got := snippet[hlStart:hlEnd]; got != "TARGET" {
		t.Errorf("highlight = %q, want TARGET", got)
	}
	if len(snippet) > 2*contextWindow+len("TARGET")+6 {
		t.Errorf("snippet too long: %d chars", len(snippet))
	}

	// --- span at the start of the text ---
	snippet, hlStart, hlEnd = extractContext(long, 0, 4)
	if strings.HasPrefix(snippet, "...") {
		t.Errorf("unexpected leading ellipsis: %q", snippet)
	}
	if got := snippet[hlStart:hlEnd]; got != long[0:4] {
		t.Errorf("highlight = %q, want %q", got, long[0:4])
	}

	// --- short text, no truncation at all ---
	short := "tiny text here"
	snippet, hlStart, hlEnd = extractContext(short, 5, 9)
	if snippet != short {
		t.Errorf("short snippet = %q, want full text", snippet)
	}
	if got := snippet[hlStart:hlEnd]; got != "text" {
		t.Errorf("highlight = %q, want %q", got, "text")
	}
}
