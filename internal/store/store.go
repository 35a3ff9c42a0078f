// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists correction-run ledgers and builds a search
// index over their edits. The pipeline itself stays memoryless; the
// surrounding tools save each run here for audit and review.
//
// See docs/ARCHITECTURE.md § Run Ledger.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

const dbFile = "copyedit.db"

// ErrNotFound reports that no run matches the requested id.
var ErrNotFound = errors.New("run not found")

// Edit status values.
const (
	StatusApplied = "applied"
	StatusFailed  = "failed"
	StatusReview  = "review"
)

// Store manages the run-ledger SQLite database.
type Store struct {
	db         *sqlx.DB
	runsDir    string
	maxResults int
}

// Run summarizes one persisted correction pass.
type Run struct {
	ID         string `db:"id" json:"id" yaml:"id"`
	CreatedAt  string `db:"created_at" json:"createdAt" yaml:"createdAt"`
	Task       string `db:"task" json:"task" yaml:"task"`
	Provider   string `db:"provider" json:"provider,omitempty" yaml:"provider,omitempty"`
	Model      string `db:"model" json:"model,omitempty" yaml:"model,omitempty"`
	Source     string `db:"source" json:"source,omitempty" yaml:"source,omitempty"`
	Segments   int    `db:"segments" json:"segments" yaml:"segments"`
	Modifiable int    `db:"modifiable" json:"modifiable" yaml:"modifiable"`
	Applied    int    `db:"applied" json:"applied" yaml:"applied"`
	Failed     int    `db:"failed" json:"failed" yaml:"failed"`
	Skipped    int    `db:"skipped" json:"skipped" yaml:"skipped"`
	DurationMS int64  `db:"duration_ms" json:"durationMs" yaml:"durationMs"`
}

// Edit is one persisted ledger entry.
type Edit struct {
	RunID         string `db:"run_id" json:"runId" yaml:"runId"`
	SegmentID     int    `db:"segment_id" json:"segmentId" yaml:"segmentId"`
	Status        string `db:"status" json:"status" yaml:"status"`
	Find          string `db:"find_text" json:"find" yaml:"find"`
	Replace       string `db:"replace_text" json:"replace" yaml:"replace"`
	Reason        string `db:"reason" json:"reason,omitempty" yaml:"reason,omitempty"`
	ChangeType    string `db:"change_type" json:"changeType,omitempty" yaml:"changeType,omitempty"`
	Context       string `db:"context" json:"context,omitempty" yaml:"context,omitempty"`
	ContextStart  int    `db:"context_start" json:"contextStart,omitempty" yaml:"contextStart,omitempty"`
	ContextEnd    int    `db:"context_end" json:"contextEnd,omitempty" yaml:"contextEnd,omitempty"`
	FailureReason string `db:"failure_reason" json:"failureReason,omitempty" yaml:"failureReason,omitempty"`
	FailedGates   string `db:"failed_gates" json:"failedGates,omitempty" yaml:"failedGates,omitempty"`
}

// RunDetail is one run with its full edit ledger.
type RunDetail struct {
	Run   Run    `json:"run" yaml:"run"`
	Edits []Edit `json:"edits" yaml:"edits"`
}

// SearchHit is one edit matched by full-text search, with its run's
// timestamp and task attached.
type SearchHit struct {
	Edit
	CreatedAt string `db:"created_at" json:"createdAt" yaml:"createdAt"`
	Task      string `db:"task" json:"task" yaml:"task"`
}

// RunMeta describes the run being saved.
type RunMeta struct {
	Task       types.Task
	Provider   string
	Model      string
	Source     string
	Segments   int
	Modifiable int
	Duration   time.Duration
}

// NewStore opens or creates the ledger database at runsDir/copyedit.db.
// It creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	if err := os.MkdirAll(cfg.RunsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating runs directory: %w", err)
	}

	dbPath := filepath.Join(cfg.RunsDir, dbFile)
	db, err := sqlx.Connect("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{
		db:         db,
		runsDir:    cfg.RunsDir,
		maxResults: maxResults,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at TEXT NOT NULL,
			task TEXT NOT NULL,
			provider TEXT,
			model TEXT,
			source TEXT,
			segments INTEGER,
			modifiable INTEGER,
			applied INTEGER,
			failed INTEGER,
			skipped INTEGER,
			duration_ms INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS edits (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id),
			segment_id INTEGER NOT NULL,
			status TEXT NOT NULL,
			find_text TEXT NOT NULL,
			replace_text TEXT NOT NULL,
			reason TEXT,
			change_type TEXT,
			context TEXT,
			context_start INTEGER,
			context_end INTEGER,
			failure_reason TEXT,
			failed_gates TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_edits_run_id ON edits(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_edits_status ON edits(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='edits_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE edits_fts USING fts5(find_text, replace_text, reason, content=edits, content_rowid=rowid)`,
			`CREATE TRIGGER edits_ai AFTER INSERT ON edits BEGIN
				INSERT INTO edits_fts(rowid, find_text, replace_text, reason)
				VALUES (new.rowid, new.find_text, new.replace_text, new.reason);
			END`,
			`CREATE TRIGGER edits_ad AFTER DELETE ON edits BEGIN
				INSERT INTO edits_fts(edits_fts, rowid, find_text, replace_text, reason)
				VALUES('delete', old.rowid, old.find_text, old.replace_text, old.reason);
			END`,
			`CREATE TRIGGER edits_au AFTER UPDATE ON edits BEGIN
				INSERT INTO edits_fts(edits_fts, rowid, find_text, replace_text, reason)
				VALUES('delete', old.rowid, old.find_text, old.replace_text, old.reason);
				INSERT INTO edits_fts(rowid, find_text, replace_text, reason)
				VALUES (new.rowid, new.find_text, new.replace_text, new.reason);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// SaveRun persists one correction result with its full ledger and
// returns the new run id.
func (s *Store) SaveRun(ctx context.Context, meta RunMeta, result *types.CorrectionResult) (string, error) {
	run := Run{
		ID:         uuid.NewString(),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
		Task:       string(meta.Task),
		Provider:   meta.Provider,
		Model:      meta.Model,
		Source:     meta.Source,
		Segments:   meta.Segments,
		Modifiable: meta.Modifiable,
		Applied:    len(result.AppliedEdits),
		Failed:     len(result.FailedEdits),
		Skipped:    len(result.SkippedEdits),
		DurationMS: meta.Duration.Milliseconds(),
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx,
		`INSERT INTO runs (id, created_at, task, provider, model, source,
			segments, modifiable, applied, failed, skipped, duration_ms)
		 VALUES (:id, :created_at, :task, :provider, :model, :source,
			:segments, :modifiable, :applied, :failed, :skipped, :duration_ms)`,
		run,
	)
	if err != nil {
		return "", fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO edits (run_id, segment_id, status, find_text, replace_text,
			reason, change_type, context, context_start, context_end,
			failure_reason, failed_gates)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range result.AppliedEdits {
		_, err := stmt.ExecContext(ctx, run.ID, e.SegmentID, StatusApplied,
			e.Find, e.Replace, e.Reason, e.ChangeType,
			e.Context, e.ContextStart, e.ContextEnd, "", "")
		if err != nil {
			return "", fmt.Errorf("inserting applied edit: %w", err)
		}
	}
	for _, e := range result.FailedEdits {
		_, err := stmt.ExecContext(ctx, run.ID, e.SegmentID, StatusFailed,
			e.Find, e.Replace, e.Reason, e.ChangeType,
			"", 0, 0, e.FailureReason, "")
		if err != nil {
			return "", fmt.Errorf("inserting failed edit: %w", err)
		}
	}
	for _, e := range result.SkippedEdits {
		_, err := stmt.ExecContext(ctx, run.ID, e.SegmentID, StatusReview,
			e.Find, e.Replace, e.Reason, e.ChangeType,
			"", 0, 0, "", joinGates(e.FailedGates))
		if err != nil {
			return "", fmt.Errorf("inserting review edit: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing run: %w", err)
	}
	return run.ID, nil
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit falls back to the configured default.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = s.maxResults
	}
	var runs []Run
	err := s.db.SelectContext(ctx, &runs,
		`SELECT id, created_at, task, provider, model, source,
			segments, modifiable, applied, failed, skipped, duration_ms
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run with its edits. A unique id prefix is accepted
// in place of the full id.
func (s *Store) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	const runColumns = `id, created_at, task, provider, model, source,
		segments, modifiable, applied, failed, skipped, duration_ms`

	var run Run
	err := s.db.GetContext(ctx, &run,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		var matches []Run
		if err := s.db.SelectContext(ctx, &matches,
			`SELECT `+runColumns+` FROM runs WHERE id LIKE ?`, id+"%"); err != nil {
			return nil, fmt.Errorf("querying runs: %w", err)
		}
		switch len(matches) {
		case 0:
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		case 1:
			run = matches[0]
		default:
			return nil, fmt.Errorf("run id %s is ambiguous (%d matches)", id, len(matches))
		}
	} else if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	var edits []Edit
	err = s.db.SelectContext(ctx, &edits,
		`SELECT run_id, segment_id, status, find_text, replace_text,
			reason, change_type, context, context_start, context_end,
			failure_reason, failed_gates
		 FROM edits WHERE run_id = ? ORDER BY segment_id, rowid`, run.ID)
	if err != nil {
		return nil, fmt.Errorf("querying edits: %w", err)
	}

	return &RunDetail{Run: run, Edits: edits}, nil
}

// SearchEdits runs a full-text query over edit find/replace/reason text
// across all runs, best match first.
func (s *Store) SearchEdits(ctx context.Context, query string, limit int) ([]SearchHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if limit <= 0 {
		limit = s.maxResults
	}

	var hits []SearchHit
	err := s.db.SelectContext(ctx, &hits,
		`SELECT e.run_id, e.segment_id, e.status, e.find_text, e.replace_text,
			e.reason, e.change_type, e.context, e.context_start, e.context_end,
			e.failure_reason, e.failed_gates, r.created_at, r.task
		 FROM edits_fts f
		 JOIN edits e ON e.rowid = f.rowid
		 JOIN runs r ON r.id = e.run_id
		 WHERE edits_fts MATCH ?
		 ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("searching edits: %w", err)
	}
	return hits, nil
}

func joinGates(gates []types.GateID) string {
	if len(gates) == 0 {
		return ""
	}
	parts := make([]string, len(gates))
	for i, g := range gates {
		parts[i] = string(g)
	}
	return strings.Join(parts, ",")
}
