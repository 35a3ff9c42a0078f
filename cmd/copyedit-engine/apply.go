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
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/copyedit-engine/internal/pipeline"
	"github.com/pdiddy/copyedit-engine/internal/store"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

var applyCmd = &cobra.Command{
	Use:   "apply [file]",
	Short: "Apply hand-written edits to an HTML document",
	Long: `Apply runs caller-supplied edits through the same validation and
patching stages as correct, without calling an AI backend. Edits come
from a YAML or JSON file holding a list of {find, replace, segmentId,
reason} objects; edits without a segmentId are matched by find text.

Use --no-validate to bypass the safety gates for pre-reviewed edits.`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().String("edits", "", "YAML or JSON file with the edits to apply (required)")
	applyCmd.Flags().String("task", "grammar", "task whose gate thresholds to validate against")
	applyCmd.Flags().String("output", "", "write corrected HTML to this file (default: stdout)")
	applyCmd.Flags().Bool("json", false, "print the full correction result as JSON instead of HTML")
	applyCmd.Flags().Bool("no-validate", false, "bypass the safety gates")
	applyCmd.Flags().Bool("save", false, "record the run in the ledger")
	_ = applyCmd.MarkFlagRequired("edits")

	rootCmd.AddCommand(applyCmd)
}

func runApply(cmd *cobra.Command, args []string) error {
	editsPath, _ := cmd.Flags().GetString("edits")
	changes, err := readEdits(editsPath)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		return fmt.Errorf("no edits found in %s", editsPath)
	}

	taskName, _ := cmd.Flags().GetString("task")
	task, err := types.ParseTask(taskName)
	if err != nil {
		return err
	}

	html, source, err := readDocument(args)
	if err != nil {
		return err
	}

	cfg := configFromViper()
	noValidate, _ := cmd.Flags().GetBool("no-validate")

	start := time.Now()
	result, err := pipeline.Run(context.Background(), pipeline.RunOptions{
		HTML:           html,
		Task:           task,
		Custom:         changes,
		SkipValidation: noValidate,
		Config:         cfg,
	}, os.Stderr)
	if err != nil {
		return err
	}

	printLedger(os.Stderr, result)

	if save, _ := cmd.Flags().GetBool("save"); save {
		meta := store.RunMeta{
			Task:     task,
			Provider: "custom",
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

// readEdits parses a YAML or JSON edits file into proposed changes.
func readEdits(path string) ([]types.ProposedChange, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var changes []types.ProposedChange
	if strings.HasSuffix(path, ".json") {
		if err := json.Unmarshal(data, &changes); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		return changes, nil
	}
	if err := yaml.Unmarshal(data, &changes); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return changes, nil
}
