// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/copyedit-engine/pkg/types"
)

// configFromViper returns the effective pipeline configuration: the
// documented defaults overlaid with values from the config file and
// COPYEDIT_ENGINE_* environment variables. Command flags are applied
// on top by the individual commands.
func configFromViper() types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	if v := viper.GetString("request.provider"); v != "" {
		cfg.Request.Provider = types.Provider(v)
	}
	if v := viper.GetString("request.model"); v != "" {
		cfg.Request.Model = v
	}
	if v := viper.GetString("request.api_key"); v != "" {
		cfg.Request.APIKey = v
	}
	if v := viper.GetString("request.base_url"); v != "" {
		cfg.Request.BaseURL = v
	}
	if v := viper.GetInt("request.max_tokens"); v > 0 {
		cfg.Request.MaxTokens = v
	}
	if v := viper.GetInt("request.max_retries"); v > 0 {
		cfg.Request.MaxRetries = v
	}
	if v := viper.GetInt("request.max_attempts"); v > 0 {
		cfg.Request.MaxAttempts = v
	}
	if v := viper.GetDuration("request.timeout"); v > 0 {
		cfg.Request.Timeout = v
	}

	if v := viper.GetInt("grammar.batch_size"); v > 0 {
		cfg.Grammar.BatchSize = v
	}
	if v := viper.GetInt("engagement.batch_size"); v > 0 {
		cfg.Engagement.BatchSize = v
	}

	if v := viper.GetString("store.runs_dir"); v != "" {
		cfg.Store.RunsDir = v
	}
	if v := viper.GetInt("store.max_results"); v > 0 {
		cfg.Store.MaxResults = v
	}

	if v := viper.GetString("fetch.content_dir"); v != "" {
		cfg.Fetch.ContentDir = v
	}
	if v := viper.GetInt64("fetch.max_body_bytes"); v > 0 {
		cfg.Fetch.MaxBodyBytes = v
	}
	if v := viper.GetDuration("fetch.timeout"); v > 0 {
		cfg.Fetch.Timeout = v
	}

	if v := viper.GetString("serve.addr"); v != "" {
		cfg.Serve.Addr = v
	}

	if v := viper.GetString("estimate.encoding"); v != "" {
		cfg.Estimate.Encoding = v
	}
	if v := viper.GetInt("estimate.reply_tokens_per_segment"); v > 0 {
		cfg.Estimate.ReplyTokensPerSegment = v
	}

	return cfg
}

// applyModelFlags applies the shared --provider and --model flags and
// fills the API key from secrets when neither the config file nor the
// environment supplied one.
func applyModelFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	if v, _ := cmd.Flags().GetString("provider"); v != "" {
		cfg.Request.Provider = types.Provider(v)
	}
	if v, _ := cmd.Flags().GetString("model"); v != "" {
		cfg.Request.Model = v
	}
	if cfg.Request.APIKey == "" {
		cfg.Request.APIKey = apiKeyFor(cfg.Request.Provider)
	}
}
