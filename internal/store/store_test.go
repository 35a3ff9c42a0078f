// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// --- test helpers ---

func testSetup(t *testing.T) (*Store, string) {
	t.Helper()
	tmpDir := t.TempDir()

	cfg := types.StoreConfig{
		RunsDir:    filepath.Join(tmpDir, "runs"),
		MaxResults: 20,
	}
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	return store, filepath.Join(tmpDir, "runs")
}

func sampleMeta() RunMeta {
	return RunMeta{
		Task:       types.TaskGrammar,
		Provider:   "openai",
		Model:      "gpt-4o",
		Source:     "landing.html",
		Segments:   12,
		Modifiable: 9,
		Duration:   2300 * time.Millisecond,
	}
}

func sampleResult() *types.CorrectionResult {
	return &types.CorrectionResult{
		HTML: "<p>We receive your order.</p>",
		AppliedEdits: []types.AppliedEdit{
			{
				SegmentID: 1, Find: "recieve", Replace: "receive",
				Reason: "spelling", ChangeType: "grammar",
				Context: "We receive your order.", ContextStart: 3, ContextEnd: 10,
			},
			{
				SegmentID: 2, Find: "teh", Replace: "the",
				Reason: "spelling", ChangeType: "grammar",
				Context: "Visit the showroom.", ContextStart: 6, ContextEnd: 9,
			},
		},
		FailedEdits: []types.FailedEdit{
			{
				SegmentID: 3, Find: "vanished text", Replace: "replacement",
				ChangeType: "grammar", FailureReason: "text not found",
			},
		},
		SkippedEdits: []types.SkippedEdit{
			{
				SegmentID: 1, Find: "9am", Replace: "8am",
				ChangeType:  "grammar",
				FailedGates: []types.GateID{types.GateNewFacts},
			},
		},
		Stats: types.Stats{Total: 3, Applied: 2, Failed: 1},
	}
}

func saveHelper(t *testing.T, store *Store) string {
	t.Helper()
	id, err := store.SaveRun(context.Background(), sampleMeta(), sampleResult())
	if err != nil {
		t.Fatal(err)
	}
	return id
}

// --- schema tests ---

func TestNewStoreCreatesSchema(t *testing.T) {
	store, _ := testSetup(t)

	tables := []string{"runs", "edits", "edits_fts"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow(
			`SELECT count(*) FROM sqlite_master WHERE type IN ('table','view') AND name = ?`, table,
		).Scan(&count)
		if err != nil {
			t.Fatalf("checking table %s: %v", table, err)
		}
		if count == 0 {
			t.Errorf("table %s does not exist", table)
		}
	}
}

func TestNewStoreCreatesDBFile(t *testing.T) {
	_, runsDir := testSetup(t)

	if _, err := os.Stat(filepath.Join(runsDir, dbFile)); os.IsNotExist(err) {
		t.Errorf("database file not created in %s", runsDir)
	}
}

// --- save and get tests ---

func TestSaveRunRoundTrip(t *testing.T) {
	store, _ := testSetup(t)
	id := saveHelper(t, store)

	detail, err := store.GetRun(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}

	run := detail.Run
	if run.ID != id {
		t.Errorf("ID = %q, want %q", run.ID, id)
	}
	if run.Task != "grammar" {
		t.Errorf("Task = %q, want grammar", run.Task)
	}
	if run.Provider != "openai" || run.Model != "gpt-4o" {
		t.Errorf("Provider/Model = %q/%q", run.Provider, run.Model)
	}
	if run.Source != "landing.html" {
		t.Errorf("Source = %q", run.Source)
	}
	if run.Segments != 12 || run.Modifiable != 9 {
		t.Errorf("Segments/Modifiable = %d/%d, want 12/9", run.Segments, run.Modifiable)
	}
	if run.Applied != 2 || run.Failed != 1 || run.Skipped != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", run.Applied, run.Failed, run.Skipped)
	}
	if run.DurationMS != 2300 {
		t.Errorf("DurationMS = %d, want 2300", run.DurationMS)
	}
	if _, err := time.Parse(time.RFC3339Nano, run.CreatedAt); err != nil {
		t.Errorf("CreatedAt %q is not RFC 3339: %v", run.CreatedAt, err)
	}

	if len(detail.Edits) != 4 {
		t.Fatalf("got %d edits, want 4", len(detail.Edits))
	}
	statuses := map[string]int{}
	for _, e := range detail.Edits {
		statuses[e.Status]++
	}
	if statuses[StatusApplied] != 2 || statuses[StatusFailed] != 1 || statuses[StatusReview] != 1 {
		t.Errorf("status counts = %v", statuses)
	}
}

func TestSaveRunStoresAllFields(t *testing.T) {
	store, _ := testSetup(t)
	id := saveHelper(t, store)

	detail, err := store.GetRun(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}

	var applied, failed, review *Edit
	for i := range detail.Edits {
		e := &detail.Edits[i]
		switch {
		case e.Status == StatusApplied && e.Find == "recieve":
			applied = e
		case e.Status == StatusFailed:
			failed = e
		case e.Status == StatusReview:
			review = e
		}
	}

	if applied == nil {
		t.Fatal("applied edit for 'recieve' not found")
	}
	if applied.Replace != "receive" || applied.Reason != "spelling" || applied.ChangeType != "grammar" {
		t.Errorf("applied edit = %+v", applied)
	}
	if applied.Context != "We receive your order." {
		t.Errorf("Context = %q", applied.Context)
	}
	if applied.ContextStart != 3 || applied.ContextEnd != 10 {
		t.Errorf("ContextStart/End = %d/%d, want 3/10", applied.ContextStart, applied.ContextEnd)
	}

	if failed == nil {
		t.Fatal("failed edit not found")
	}
	if failed.FailureReason != "text not found" {
		t.Errorf("FailureReason = %q", failed.FailureReason)
	}

	if review == nil {
		t.Fatal("review edit not found")
	}
	if review.FailedGates != "NEW_FACTS_DETECTED" {
		t.Errorf("FailedGates = %q, want NEW_FACTS_DETECTED", review.FailedGates)
	}
}

func TestGetRunByPrefix(t *testing.T) {
	store, _ := testSetup(t)
	id := saveHelper(t, store)

	detail, err := store.GetRun(context.Background(), id[:8])
	if err != nil {
		t.Fatal(err)
	}
	if detail.Run.ID != id {
		t.Errorf("ID = %q, want %q", detail.Run.ID, id)
	}
}

func TestGetRunNotFound(t *testing.T) {
	store, _ := testSetup(t)

	_, err := store.GetRun(context.Background(), "no-such-run")
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

// --- list tests ---

func TestListRuns(t *testing.T) {
	store, _ := testSetup(t)

	var ids []string
	for i := 0; i < 3; i++ {
		ids = append(ids, saveHelper(t, store))
	}

	runs, err := store.ListRuns(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Newest first.
	if runs[0].ID != ids[2] {
		t.Errorf("first run = %q, want most recent %q", runs[0].ID, ids[2])
	}

	all, err := store.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("got %d runs with default limit, want 3", len(all))
	}
}

// --- search tests ---

func TestSearchEdits(t *testing.T) {
	store, _ := testSetup(t)
	saveHelper(t, store)

	hits, err := store.SearchEdits(context.Background(), "recieve", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("got %d hits, want 1", len(hits))
	}
	hit := hits[0]
	if hit.Find != "recieve" || hit.Replace != "receive" {
		t.Errorf("hit = %q -> %q", hit.Find, hit.Replace)
	}
	if hit.Task != "grammar" {
		t.Errorf("hit.Task = %q, want grammar", hit.Task)
	}
	if hit.CreatedAt == "" {
		t.Error("hit missing created_at")
	}
}

func TestSearchEditsNoResults(t *testing.T) {
	store, _ := testSetup(t)
	saveHelper(t, store)

	hits, err := store.SearchEdits(context.Background(), "xyzzy", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("got %d hits, want 0", len(hits))
	}
}

func TestSearchEditsEmptyQuery(t *testing.T) {
	store, _ := testSetup(t)

	if _, err := store.SearchEdits(context.Background(), "  ", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

// --- export tests ---

func TestExportYAML(t *testing.T) {
	store, runsDir := testSetup(t)
	saveHelper(t, store)

	if err := store.ExportYAML(context.Background(), ExportOptions{}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(runsDir, "export.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []RunDetail
	if err := yaml.Unmarshal(data, &entries); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if len(entries[0].Edits) != 4 {
		t.Errorf("got %d edits, want 4", len(entries[0].Edits))
	}
}

func TestExportJSONFilteredByStatus(t *testing.T) {
	store, runsDir := testSetup(t)
	saveHelper(t, store)

	opts := ExportOptions{Status: StatusApplied}
	if err := store.ExportJSON(context.Background(), opts); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(runsDir, "export.json"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []RunDetail
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if len(entries[0].Edits) != 2 {
		t.Errorf("got %d edits, want 2 applied", len(entries[0].Edits))
	}
	for _, e := range entries[0].Edits {
		if e.Status != StatusApplied {
			t.Errorf("edit status = %q, want applied", e.Status)
		}
	}
}

func TestExportSingleRun(t *testing.T) {
	store, runsDir := testSetup(t)
	first := saveHelper(t, store)
	saveHelper(t, store)

	if err := store.ExportYAML(context.Background(), ExportOptions{RunID: first}); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(runsDir, "export.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	var entries []RunDetail
	if err := yaml.Unmarshal(data, &entries); err != nil {
		t.Fatalf("invalid YAML: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Run.ID != first {
		t.Errorf("exported run = %q, want %q", entries[0].Run.ID, first)
	}
}
