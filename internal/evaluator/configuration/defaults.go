package configuration

import (
	"net/http"
	"os"
	"time"
)

// Default retry policy: three attempts per model with 500ms base backoff
// capped at 8s, full jitter.
const (
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 8 * time.Second
	DefaultMultiplier      = 2.0
)

// DefaultJudgeTimeout bounds a single judge completion call.
const DefaultJudgeTimeout = 30 * time.Second

// DefaultFairnessTimeout bounds the single fairness service call.
const DefaultFairnessTimeout = 15 * time.Second

// DefaultConfig returns production-ready defaults. The judge API key is
// read from JUDGE_API_KEY; absence leaves the judge unconfigured, which
// callers surface as degraded results rather than scattered nil checks.
func DefaultConfig() *Config {
	return &Config{
		HTTPClient: &http.Client{Timeout: DefaultJudgeTimeout},
		Judge: JudgeConfig{
			Endpoint:  "https://generativelanguage.googleapis.com/v1beta/openai",
			APIKey:    os.Getenv("JUDGE_API_KEY"),
			APIKeyEnv: "JUDGE_API_KEY",
			Models: []string{
				"gemini-2.0-flash",
				"gemini-1.5-flash",
				"gemini-1.5-pro",
			},
			Timeout:     DefaultJudgeTimeout,
			Temperature: 0.1,
			MaxTokens:   1024,
		},
		Retry: RetryConfig{
			MaxAttempts:     DefaultMaxAttempts,
			InitialInterval: DefaultInitialInterval,
			MaxInterval:     DefaultMaxInterval,
			Multiplier:      DefaultMultiplier,
			UseJitter:       true,
		},
		Fairness: FairnessConfig{
			Enabled: os.Getenv("FAIRNESS_SERVICE_URL") != "",
			BaseURL: os.Getenv("FAIRNESS_SERVICE_URL"),
			Timeout: DefaultFairnessTimeout,
		},
	}
}
