// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the copyedit-engine CLI.
// See docs/ARCHITECTURE.md § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/copyedit-engine/internal/secrets"
	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// apiKeyFor returns the API key for the provider, preferring .secrets/
// files over the conventional environment variable (OPENAI_API_KEY or
// ANTHROPIC_API_KEY).
func apiKeyFor(p types.Provider) string {
	if p == types.ProviderAnthropic {
		return secrets.Get(loadedSecrets, secrets.AnthropicKeyFile)
	}
	return secrets.Get(loadedSecrets, secrets.OpenAIKeyFile)
}

// rootCmd is the base command for the copyedit-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "copyedit-engine",
	Short: "AI-backed copy editing for HTML documents",
	Long: `copyedit-engine corrects the text of HTML documents without touching their
markup. Text segments are extracted from the document, batched to an AI
backend (or supplied by hand), validated against safety gates, and patched
back in with a full edit ledger.

Each pipeline stage is a subcommand: fetch, extract, estimate, correct,
apply, runs, and serve.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./copyedit-engine.yaml or ~/.config/copyedit-engine/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("copyedit-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "copyedit-engine"))
		}
	}

	viper.SetEnvPrefix("COPYEDIT_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	// A .env file in the working directory can supply API keys.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
