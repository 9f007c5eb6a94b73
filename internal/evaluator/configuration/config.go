// Package configuration holds typed configuration for the evaluator
// backends: the primary LLM judge with its model-fallback chain and retry
// policy, and the secondary statistical fairness service.
package configuration

import (
	"net/http"
	"time"
)

// Config holds comprehensive configuration for evaluator backends.
type Config struct {
	// HTTP client shared by judge and fairness calls. Not serialized.
	HTTPClient *http.Client `json:"-"`

	// Judge configures the primary LLM judge.
	Judge JudgeConfig `json:"judge"`

	// Retry configures per-model retry behavior for the judge.
	Retry RetryConfig `json:"retry"`

	// Fairness configures the secondary statistical fairness service.
	Fairness FairnessConfig `json:"fairness"`
}

// JudgeConfig holds the primary judge's provider settings. Models is the
// ordered fallback chain: each model is retried per RetryConfig before the
// next is attempted.
type JudgeConfig struct {
	Endpoint  string        `json:"endpoint"`
	APIKey    string        `json:"-"` // Sensitive, not serialized
	APIKeyEnv string        `json:"api_key_env"`
	Models    []string      `json:"models"`
	Timeout   time.Duration `json:"timeout"`

	// Temperature and MaxTokens shape judge completions. Low temperature
	// keeps scoring output stable across retries.
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Configured reports whether the judge has credentials to call with.
func (j JudgeConfig) Configured() bool { return j.APIKey != "" && len(j.Models) > 0 }

// RetryConfig controls retry behavior within a single judge model.
// Exhausted retries fall through to the next model in the chain.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts"`     // Attempts per model before fallback
	InitialInterval time.Duration `json:"initial_interval"` // Starting backoff duration
	MaxInterval     time.Duration `json:"max_interval"`     // Backoff cap
	Multiplier      float64       `json:"multiplier"`       // Exponential backoff multiplier
	UseJitter       bool          `json:"use_jitter"`       // Enable full jitter randomization
}

// FairnessConfig holds the secondary fairness service settings. The service
// is called once per item with a hard timeout and never retried; its
// cost/latency profile disallows backoff at this layer.
type FairnessConfig struct {
	Enabled bool          `json:"enabled"`
	BaseURL string        `json:"base_url"`
	Timeout time.Duration `json:"timeout"`
}
