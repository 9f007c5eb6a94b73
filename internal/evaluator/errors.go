package evaluator

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes judge call failures for retry classification.
type ErrorType string

const (
	// ErrorTypeRateLimit indicates rate limit or quota pressure (retryable).
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeNetwork indicates transient network failure (retryable).
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeProvider indicates a 5xx provider failure (retryable).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeMalformed indicates an unparseable judge response
	// (retryable in the single-metric judge variant: a fresh completion
	// may produce valid JSON).
	ErrorTypeMalformed ErrorType = "malformed_response"

	// ErrorTypeAuth indicates authentication failure (non-retryable).
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypeUnknown indicates an unclassified failure (non-retryable).
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common evaluator errors.
var (
	// ErrJudgeUnconfigured indicates the judge has no credentials or no
	// model chain. Surfaced as a degraded result, never a crash.
	ErrJudgeUnconfigured = errors.New("judge client unconfigured")

	// ErrModelsExhausted indicates every model in the fallback chain
	// failed after its retry budget.
	ErrModelsExhausted = errors.New("all judge models exhausted")

	// ErrMalformedResponse indicates judge output that remained invalid
	// after a one-shot repair attempt.
	ErrMalformedResponse = errors.New("malformed judge response")
)

// ProviderError captures a structured judge provider failure with enough
// context to classify it for retry.
type ProviderError struct {
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Type       ErrorType `json:"type"`
}

// Error returns the formatted provider error with status code context.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s/%s error (status %d): %s", e.Provider, e.Model, e.StatusCode, e.Message)
}

// IsRetryable reports whether the failure warrants another attempt on the
// same model.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeNetwork, ErrorTypeProvider, ErrorTypeMalformed:
		return true
	default:
		return false
	}
}

// classifyStatus maps an HTTP status code onto an ErrorType.
func classifyStatus(code int) ErrorType {
	switch {
	case code == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ErrorTypeAuth
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return ErrorTypeNetwork
	case code >= 500:
		return ErrorTypeProvider
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryableError reports whether an error warrants a retry on the same
// model. Unknown errors are conservatively non-retryable to avoid loops.
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.IsRetryable()
	}

	if errors.Is(err, ErrMalformedResponse) {
		return true
	}

	// Transport-level failures (connection reset, DNS) surface as plain
	// errors from the HTTP client and are worth retrying.
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return true
	}

	return false
}
