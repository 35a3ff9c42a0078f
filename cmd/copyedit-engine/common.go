// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/pdiddy/copyedit-engine/internal/extract"
	"github.com/pdiddy/copyedit-engine/internal/fetch"
	"github.com/pdiddy/copyedit-engine/internal/store"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// readDocument returns the HTML input for a document command: a URL,
// the file named by the first positional argument, or stdin when the
// argument is absent or "-". The second return is a source label for
// the run ledger.
func readDocument(args []string) (string, string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	if strings.HasPrefix(args[0], "http://") || strings.HasPrefix(args[0], "https://") {
		cfg := configFromViper().Fetch
		client := &http.Client{Timeout: cfg.Timeout}
		body, err := fetch.Download(context.Background(), client, args[0], cfg)
		if err != nil {
			return "", "", err
		}
		return string(body), args[0], nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", err
	}
	return string(data), args[0], nil
}

// writeDocument writes corrected HTML to path, or stdout when path is
// empty or "-".
func writeDocument(path, html string) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.WriteString(html)
		return err
	}
	return os.WriteFile(path, []byte(html), 0o644)
}

// printLedger writes the human-readable edit ledger: one line per
// edit, colored by outcome, then the totals.
func printLedger(w io.Writer, result *types.CorrectionResult) {
	applied := color.New(color.FgGreen).Sprint("applied")
	failed := color.New(color.FgRed).Sprint("failed ")
	review := color.New(color.FgYellow).Sprint("review ")

	for _, e := range result.AppliedEdits {
		fmt.Fprintf(w, "%s segment %d: %q -> %q\n", applied, e.SegmentID, e.Find, e.Replace)
	}
	for _, e := range result.FailedEdits {
		fmt.Fprintf(w, "%s segment %d: %q (%s)\n", failed, e.SegmentID, e.Find, e.FailureReason)
	}
	for _, e := range result.SkippedEdits {
		fmt.Fprintf(w, "%s segment %d: %q -> %q [%s]\n", review, e.SegmentID, e.Find, e.Replace, gateList(e.FailedGates))
	}

	fmt.Fprintf(w, "\n%d applied, %d failed, %d held for review\n",
		result.Stats.Applied, result.Stats.Failed, len(result.SkippedEdits))
}

// gateList joins gate identifiers for display.
func gateList(gates []types.GateID) string {
	names := make([]string, len(gates))
	for i, g := range gates {
		names[i] = string(g)
	}
	return strings.Join(names, ", ")
}

// excerpt flattens whitespace and truncates s for table display.
func excerpt(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// formatTime renders a stored RFC 3339 timestamp for table output.
func formatTime(created string) string {
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return created
	}
	return t.Local().Format("2006-01-02 15:04")
}

// persistRun records a completed correction in the run ledger and
// returns the new run id. The document is re-extracted for the segment
// counts in the run metadata.
func persistRun(ctx context.Context, cfg types.StoreConfig, meta store.RunMeta, html string, result *types.CorrectionResult) (string, error) {
	st, err := store.NewStore(cfg)
	if err != nil {
		return "", err
	}
	defer st.Close()

	if segments, _, err := extract.Extract(html); err == nil {
		meta.Segments = len(segments)
		for _, s := range segments {
			if s.Modifiable {
				meta.Modifiable++
			}
		}
	}

	return st.SaveRun(ctx, meta, result)
}
