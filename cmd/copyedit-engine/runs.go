// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/copyedit-engine/internal/store"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the correction run ledger (list, show, search, export)",
	Long: `Runs queries the ledger of recorded correction runs. Use subcommands
to list recent runs, show one run's full edit ledger, search edit text
across runs, or export the ledger to a file.`,
}

// --- list subcommand ---

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent correction runs",
	RunE:  runRunsList,
}

func runRunsList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := st.ListRuns(context.Background(), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Println("No runs recorded.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"ID", "Created", "Task", "Model", "Source", "Applied", "Failed", "Review"})
	for _, r := range runs {
		table.Append([]string{
			r.ID[:8],
			formatTime(r.CreatedAt),
			r.Task,
			r.Model,
			excerpt(r.Source, 40),
			strconv.Itoa(r.Applied),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.Skipped),
		})
	}
	table.Render()

	fmt.Printf("\n%d runs\n", len(runs))
	return nil
}

// --- show subcommand ---

var runsShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show one run's metadata and full edit ledger",
	Long: `Show prints a run's metadata and every edit it recorded. The id may be
any unique prefix of the full run id.`,
	RunE: runRunsShow,
}

func runRunsShow(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("provide a run id (any unique prefix)")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	detail, err := st.GetRun(context.Background(), args[0])
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(detail)
	}

	r := detail.Run
	backend := r.Provider
	if r.Model != "" {
		backend += "/" + r.Model
	}
	fmt.Printf("Run %s\n", r.ID)
	fmt.Printf("  created:  %s\n", formatTime(r.CreatedAt))
	fmt.Printf("  task:     %s\n", r.Task)
	fmt.Printf("  backend:  %s\n", backend)
	fmt.Printf("  source:   %s\n", r.Source)
	fmt.Printf("  segments: %d (%d modifiable)\n", r.Segments, r.Modifiable)
	fmt.Printf("  edits:    %d applied, %d failed, %d held for review\n", r.Applied, r.Failed, r.Skipped)
	fmt.Printf("  duration: %s\n", time.Duration(r.DurationMS)*time.Millisecond)

	if len(detail.Edits) == 0 {
		return nil
	}

	fmt.Println()
	for _, e := range detail.Edits {
		fmt.Printf("%s segment %d: %q -> %q", statusLabel(e.Status), e.SegmentID, e.Find, e.Replace)
		switch {
		case e.FailureReason != "":
			fmt.Printf(" (%s)", e.FailureReason)
		case e.FailedGates != "":
			fmt.Printf(" [%s]", e.FailedGates)
		}
		fmt.Println()
	}
	return nil
}

// statusLabel colors a stored edit status for terminal output. The
// labels are padded to align the ledger columns.
func statusLabel(status string) string {
	switch status {
	case store.StatusApplied:
		return color.New(color.FgGreen).Sprint("applied")
	case store.StatusFailed:
		return color.New(color.FgRed).Sprint("failed ")
	case store.StatusReview:
		return color.New(color.FgYellow).Sprint("review ")
	}
	return status
}

// --- search subcommand ---

var runsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Full-text search across recorded edits",
	Long: `Search runs a full-text query over the find, replace, and reason text
of every recorded edit, across all runs.`,
	RunE: runRunsSearch,
}

func runRunsSearch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide a search query")
	}

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	hits, err := st.SearchEdits(context.Background(), strings.Join(args, " "), limit)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(hits)
	}

	if len(hits) == 0 {
		fmt.Println("No matching edits.")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Run", "Created", "Task", "Status", "Find", "Replace"})
	for _, h := range hits {
		table.Append([]string{
			h.RunID[:8],
			formatTime(h.CreatedAt),
			h.Task,
			h.Status,
			excerpt(h.Find, 40),
			excerpt(h.Replace, 40),
		})
	}
	table.Render()

	fmt.Printf("\n%d matching edits\n", len(hits))
	return nil
}

// --- export subcommand ---

var runsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded runs to YAML or JSON",
	Long: `Export writes recorded runs and their edit ledgers to export.yaml or
export.json under the runs directory. Use --run for a single run or
--status to keep only edits with that status.`,
	RunE: runRunsExport,
}

func runRunsExport(cmd *cobra.Command, args []string) error {
	cfg := runsStoreConfig(cmd)
	st, err := store.NewStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var opts store.ExportOptions
	opts.RunID, _ = cmd.Flags().GetString("run")
	opts.Status, _ = cmd.Flags().GetString("status")
	opts.Limit, _ = cmd.Flags().GetInt("limit")

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml", "":
		if err := st.ExportYAML(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", filepath.Join(cfg.RunsDir, "export.yaml"))
	case "json":
		if err := st.ExportJSON(context.Background(), opts); err != nil {
			return err
		}
		fmt.Printf("Exported to %s\n", filepath.Join(cfg.RunsDir, "export.json"))
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}

	return nil
}

// --- shared helpers ---

// runsStoreConfig resolves the store configuration for the runs
// subcommands from the config file and the shared flags.
func runsStoreConfig(cmd *cobra.Command) types.StoreConfig {
	cfg := configFromViper().Store
	if v, _ := cmd.Flags().GetString("runs-dir"); v != "" {
		cfg.RunsDir = v
	}
	if v, _ := cmd.Flags().GetInt("max-results"); v > 0 {
		cfg.MaxResults = v
	}
	return cfg
}

func openStore(cmd *cobra.Command) (*store.Store, error) {
	return store.NewStore(runsStoreConfig(cmd))
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	runsCmd.PersistentFlags().String("runs-dir", "", "base directory for the run ledger (default \"runs\")")
	runsCmd.PersistentFlags().Int("max-results", 0, "default maximum number of query results")

	// List flags.
	runsListCmd.Flags().Int("limit", 0, "maximum runs to list (0 = use default)")
	runsListCmd.Flags().Bool("json", false, "output runs as JSON")

	// Show flags.
	runsShowCmd.Flags().Bool("json", false, "output the run and its edits as JSON")

	// Search flags.
	runsSearchCmd.Flags().Int("limit", 0, "maximum edits to return (0 = use default)")
	runsSearchCmd.Flags().Bool("json", false, "output matching edits as JSON")

	// Export flags.
	runsExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	runsExportCmd.Flags().String("run", "", "export a single run (id or unique prefix)")
	runsExportCmd.Flags().String("status", "", "keep only edits with this status: applied, failed, or review")
	runsExportCmd.Flags().Int("limit", 0, "maximum runs to export (0 = all)")

	// Wire subcommands.
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsSearchCmd)
	runsCmd.AddCommand(runsExportCmd)

	rootCmd.AddCommand(runsCmd)
}
