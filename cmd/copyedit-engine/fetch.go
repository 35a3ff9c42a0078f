// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/copyedit-engine/internal/fetch"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [urls...]",
	Short: "Download HTML pages into the content directory",
	Long: `Fetch downloads web pages to content/raw/ and writes a metadata record
for each. Already-fetched pages are skipped unless --force is given.
With --readable, page boilerplate (navigation, ads, chrome) is
stripped and only the main article content is kept.`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().Bool("readable", false, "strip boilerplate and keep the main article content")
	fetchCmd.Flags().Bool("force", false, "re-download pages that already exist")
	fetchCmd.Flags().String("content-dir", "", "base directory for fetched content (default \"content\")")
	fetchCmd.Flags().Duration("timeout", 0, "HTTP request timeout (default 30s)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more URLs to fetch")
	}

	cfg := configFromViper()
	if v, _ := cmd.Flags().GetString("content-dir"); v != "" {
		cfg.Fetch.ContentDir = v
	}
	if v, _ := cmd.Flags().GetDuration("timeout"); v > 0 {
		cfg.Fetch.Timeout = v
	}

	var opts fetch.Options
	opts.Readable, _ = cmd.Flags().GetBool("readable")
	opts.Force, _ = cmd.Flags().GetBool("force")

	client := &http.Client{
		Timeout: cfg.Fetch.Timeout,
	}

	result := fetch.FetchBatch(context.Background(), client, args, opts, cfg.Fetch, os.Stdout)
	if result.HasFailures() {
		return fmt.Errorf("%d page(s) failed to download", result.Failed)
	}
	return nil
}
