// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "copyedit-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// Provider identifies the correction backend vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Provider selects the backend vendor: openai or anthropic.
	Provider Provider `json:"provider" yaml:"provider"`

	// Model is the AI model identifier (e.g. "gpt-4o",
	// "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider's default API endpoint, for
	// gateways and tests. Empty means the vendor default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the completion size per batch request (default 4096).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// MaxRetries is the number of transport-level retry attempts for
	// rate-limited or server-failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// TaskConfig holds the task-keyed correction knobs: batch sizing and the
// safety-gate thresholds. The per-task defaults are preserved from the
// production system and are deliberately not derived from one formula.
type TaskConfig struct {
	// BatchSize is the number of segments sent per correction request.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// SimilarityFloor and SimilarityCeiling bound the accepted
	// find/replace similarity: floor <= similarity < ceiling.
	SimilarityFloor   float64 `json:"similarity_floor" yaml:"similarity_floor"`
	SimilarityCeiling float64 `json:"similarity_ceiling" yaml:"similarity_ceiling"`

	// MaxWordDelta is the allowed word-count change for body segments.
	MaxWordDelta int `json:"max_word_delta" yaml:"max_word_delta"`

	// MaxHeadingWordDelta is the allowed word-count change for heading
	// segments.
	MaxHeadingWordDelta int `json:"max_heading_word_delta" yaml:"max_heading_word_delta"`

	// MaxLengthRatio is the ceiling on |len(replace)-len(find)|/len(find).
	MaxLengthRatio float64 `json:"max_length_ratio" yaml:"max_length_ratio"`
}

// RequestConfig holds settings for the batch correction requester.
type RequestConfig struct {
	AIConfig   `yaml:",inline"`
	HTTPConfig `yaml:",inline"`

	// MaxAttempts is the per-batch ceiling on format retries: when a
	// response fails to parse, the batch is re-prompted with the parse
	// error as feedback, up to this many attempts (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// StoreConfig holds settings for the run-ledger store.
type StoreConfig struct {
	// RunsDir is the base directory for the ledger database and exports.
	RunsDir string `json:"runs_dir" yaml:"runs_dir"`

	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// FetchConfig holds settings for document acquisition.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// ContentDir is the directory fetched documents are written to.
	ContentDir string `json:"content_dir" yaml:"content_dir"`

	// MaxBodyBytes caps the downloaded response size (default 10 MiB).
	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes"`
}

// ServeConfig holds settings for the HTTP API.
type ServeConfig struct {
	// Addr is the listen address (default ":8642").
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout and WriteTimeout bound request handling. WriteTimeout
	// must cover a full correction pass, which waits on the AI backend.
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// EstimateConfig holds settings for token and cost estimation.
type EstimateConfig struct {
	// Encoding is the tokenizer encoding used for counting (default
	// "cl100k_base").
	Encoding string `json:"encoding" yaml:"encoding"`

	// ReplyTokensPerSegment is the completion allowance assumed per
	// segment when estimating cost (default 60).
	ReplyTokensPerSegment int `json:"reply_tokens_per_segment" yaml:"reply_tokens_per_segment"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Request    RequestConfig  `json:"request" yaml:"request"`
	Grammar    TaskConfig     `json:"grammar" yaml:"grammar"`
	Engagement TaskConfig     `json:"engagement" yaml:"engagement"`
	Store      StoreConfig    `json:"store" yaml:"store"`
	Fetch      FetchConfig    `json:"fetch" yaml:"fetch"`
	Serve      ServeConfig    `json:"serve" yaml:"serve"`
	Estimate   EstimateConfig `json:"estimate" yaml:"estimate"`
}

// ForTask returns the TaskConfig for the given task. Unknown tasks fall
// back to the grammar thresholds, the stricter of the two.
func (c PipelineConfig) ForTask(t Task) TaskConfig {
	if t == TaskEngagement {
		return c.Engagement
	}
	return c.Grammar
}

// DefaultPipelineConfig returns the documented defaults for every stage.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Request: RequestConfig{
			AIConfig: AIConfig{
				Provider:   ProviderOpenAI,
				Model:      "gpt-4o",
				MaxTokens:  4096,
				MaxRetries: 3,
			},
			HTTPConfig: HTTPConfig{
				Timeout:   120 * time.Second,
				UserAgent: "copyedit-engine/0.1",
			},
			MaxAttempts: 5,
		},
		// Grammar batches run large: most segments come back unchanged,
		// so responses stay small. Engagement rewrites nearly every
		// segment and ships in small batches.
		Grammar: TaskConfig{
			BatchSize:           200,
			SimilarityFloor:     0.80,
			SimilarityCeiling:   0.99,
			MaxWordDelta:        5,
			MaxHeadingWordDelta: 3,
			MaxLengthRatio:      0.25,
		},
		Engagement: TaskConfig{
			BatchSize:           20,
			SimilarityFloor:     0.75,
			SimilarityCeiling:   0.99,
			MaxWordDelta:        5,
			MaxHeadingWordDelta: 4,
			MaxLengthRatio:      0.30,
		},
		Store: StoreConfig{
			RunsDir:    "runs",
			MaxResults: 20,
		},
		Fetch: FetchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: "copyedit-engine/0.1",
			},
			ContentDir:   "content",
			MaxBodyBytes: 10 << 20,
		},
		Serve: ServeConfig{
			Addr:         ":8642",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 10 * time.Minute,
		},
		Estimate: EstimateConfig{
			Encoding:              "cl100k_base",
			ReplyTokensPerSegment: 60,
		},
	}
}
