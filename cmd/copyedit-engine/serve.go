// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/copyedit-engine/internal/serve"
	"github.com/pdiddy/copyedit-engine/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the correction HTTP API",
	Long: `Serve starts an HTTP server exposing the correction pipeline:
POST /v1/correct and POST /v1/apply run corrections, GET /v1/runs
lists recorded runs. Requests that ask for persistence are written to
the run ledger unless --no-store is given.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default \":8642\")")
	serveCmd.Flags().Bool("no-store", false, "disable the run ledger and its endpoints")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := configFromViper()
	if v, _ := cmd.Flags().GetString("addr"); v != "" {
		cfg.Serve.Addr = v
	}
	if cfg.Request.APIKey == "" {
		cfg.Request.APIKey = apiKeyFor(cfg.Request.Provider)
	}

	var st *store.Store
	if noStore, _ := cmd.Flags().GetBool("no-store"); !noStore {
		var err error
		st, err = store.NewStore(cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	return serve.New(cfg, st).ListenAndServe()
}
