// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/copyedit-engine/internal/pipeline"
	"github.com/pdiddy/copyedit-engine/internal/request"
	"github.com/pdiddy/copyedit-engine/internal/store"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

var correctCmd = &cobra.Command{
	Use:   "correct [file]",
	Short: "Correct an HTML document through the AI backend",
	Long: `Correct extracts the text segments of an HTML document, sends the
modifiable ones to the AI backend in batches, validates every proposed
edit against the safety gates, and writes the patched document.

Reads the document from a file argument, a URL, or stdin. The
corrected HTML goes to --output (stdout by default); progress and the
edit ledger go to stderr.`,
	RunE: runCorrect,
}

func init() {
	correctCmd.Flags().String("task", "grammar", "correction task: grammar or engagement")
	correctCmd.Flags().String("provider", "", "AI provider: openai or anthropic")
	correctCmd.Flags().String("model", "", "AI model identifier")
	correctCmd.Flags().String("output", "", "write corrected HTML to this file (default: stdout)")
	correctCmd.Flags().Bool("json", false, "print the full correction result as JSON instead of HTML")
	correctCmd.Flags().Bool("save", false, "record the run in the ledger")

	rootCmd.AddCommand(correctCmd)
}

func runCorrect(cmd *cobra.Command, args []string) error {
	taskName, _ := cmd.Flags().GetString("task")
	task, err := types.ParseTask(taskName)
	if err != nil {
		return err
	}

	html, source, err := readDocument(args)
	if err != nil {
		return err
	}

	// An empty document is a successful no-op; no backend is needed.
	if strings.TrimSpace(html) == "" {
		fmt.Fprintln(os.Stderr, "empty input, nothing to correct")
		output, _ := cmd.Flags().GetString("output")
		return writeDocument(output, html)
	}

	cfg := configFromViper()
	applyModelFlags(cmd, &cfg)

	backend, err := request.NewBackend(cfg.Request)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := pipeline.Run(context.Background(), pipeline.RunOptions{
		HTML:    html,
		Task:    task,
		Backend: backend,
		Config:  cfg,
	}, os.Stderr)
	if err != nil {
		return err
	}

	printLedger(os.Stderr, result)

	if save, _ := cmd.Flags().GetBool("save"); save {
		meta := store.RunMeta{
			Task:     task,
			Provider: string(cfg.Request.Provider),
			Model:    cfg.Request.Model,
			Source:   source,
			Duration: time.Since(start),
		}
		id, err := persistRun(context.Background(), cfg.Store, meta, html, result)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Fprintf(os.Stderr, "saved run %s\n", id)
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	output, _ := cmd.Flags().GetString("output")
	return writeDocument(output, result.HTML)
}
