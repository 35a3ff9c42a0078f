// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/pdiddy/copyedit-engine/internal/estimate"
	"github.com/pdiddy/copyedit-engine/internal/extract"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate [file]",
	Short: "Estimate token usage and cost for a correction run",
	Long: `Estimate tokenizes the prompts a correction run would send, without
calling the backend, and prints the expected token usage and cost.
Prices come from a built-in table keyed by model name prefix; unknown
models get token counts only.`,
	RunE: runEstimate,
}

func init() {
	estimateCmd.Flags().String("task", "grammar", "correction task: grammar or engagement")
	estimateCmd.Flags().String("model", "", "AI model identifier to price against")
	estimateCmd.Flags().Bool("json", false, "output the estimate as JSON")

	rootCmd.AddCommand(estimateCmd)
}

func runEstimate(cmd *cobra.Command, args []string) error {
	taskName, _ := cmd.Flags().GetString("task")
	task, err := types.ParseTask(taskName)
	if err != nil {
		return err
	}

	html, _, err := readDocument(args)
	if err != nil {
		return err
	}

	cfg := configFromViper()
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Request.Model = v
	}

	segments, _, err := extract.Extract(html)
	if err != nil {
		return err
	}

	est, err := estimate.New(segments, task, cfg)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	}

	if len(est.BatchTokens) > 1 {
		batches := tablewriter.NewWriter(os.Stdout)
		batches.SetAutoWrapText(false)
		batches.SetHeader([]string{"Batch", "Prompt Tokens"})
		for i, n := range est.BatchTokens {
			batches.Append([]string{strconv.Itoa(i + 1), strconv.Itoa(n)})
		}
		batches.Render()
		fmt.Println()
	}

	cost := est.CostString()
	if est.Priced {
		cost = color.New(color.Bold, color.FgGreen).Sprint(cost)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.Append([]string{"Model", est.Model})
	table.Append([]string{"Task", string(est.Task)})
	table.Append([]string{"Segments", strconv.Itoa(est.Segments)})
	table.Append([]string{"Batches", strconv.Itoa(est.Batches)})
	table.Append([]string{"Prompt tokens", strconv.Itoa(est.PromptTokens)})
	table.Append([]string{"Completion tokens", strconv.Itoa(est.CompletionTokens)})
	table.Append([]string{"Total tokens", strconv.Itoa(est.TotalTokens)})
	table.Append([]string{"Estimated cost", cost})
	table.Render()

	return nil
}
