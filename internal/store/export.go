// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

// ExportOptions filter which runs and edits an export includes.
type ExportOptions struct {
	// RunID restricts the export to a single run. A unique prefix is
	// accepted. Empty exports all runs.
	RunID string

	// Status keeps only edits with this status (applied, failed or
	// review). Empty keeps all edits.
	Status string

	// Limit caps the number of runs exported, newest first.
	Limit int
}

const exportLimit = 100000

// ExportYAML writes runs with their edit ledgers to runs-dir/export.yaml.
func (s *Store) ExportYAML(ctx context.Context, opts ExportOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.runsDir, "export.yaml")
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ExportJSON writes runs with their edit ledgers to runs-dir/export.json.
func (s *Store) ExportJSON(ctx context.Context, opts ExportOptions) error {
	entries, err := s.exportEntries(ctx, opts)
	if err != nil {
		return err
	}

	path := filepath.Join(s.runsDir, "export.json")
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func (s *Store) exportEntries(ctx context.Context, opts ExportOptions) ([]RunDetail, error) {
	var details []RunDetail

	if opts.RunID != "" {
		detail, err := s.GetRun(ctx, opts.RunID)
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	} else {
		limit := opts.Limit
		if limit <= 0 {
			limit = exportLimit
		}
		runs, err := s.ListRuns(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("querying for export: %w", err)
		}
		for _, run := range runs {
			detail, err := s.GetRun(ctx, run.ID)
			if err != nil {
				return nil, err
			}
			details = append(details, *detail)
		}
	}

	if opts.Status != "" {
		for i := range details {
			filtered := details[i].Edits[:0]
			for _, e := range details[i].Edits {
				if e.Status == opts.Status {
					filtered = append(filtered, e)
				}
			}
			details[i].Edits = filtered
		}
	}

	return details, nil
}
