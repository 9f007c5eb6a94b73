// Package endpoint builds and executes HTTP calls against user-configured
// endpoints: it hydrates a stored JSON body template with the prompt,
// injects API-key material per the configured placement strategy, executes
// with a hard timeout, and extracts the answer string via a path expression.
//
// The caller performs no retries. Retry policy belongs to the dispatching
// job processor, which rate-limits and sequences calls.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fairlens/fairlens/internal/domain"
)

// DefaultTimeout is the hard per-call deadline for user endpoints.
const DefaultTimeout = 10 * time.Second

// maxErrorBodyBytes bounds how much of a failing response body is captured
// into error messages.
const maxErrorBodyBytes = 2048

// Caller executes prompt calls against user endpoints.
type Caller struct {
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures a Caller.
type Option func(*Caller)

// WithHTTPClient overrides the HTTP client, primarily for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(caller *Caller) { caller.httpClient = c }
}

// WithTimeout overrides the hard per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(caller *Caller) { caller.timeout = d }
}

// NewCaller creates a Caller with the default 10s hard timeout.
func NewCaller(opts ...Option) *Caller {
	c := &Caller{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Call hydrates the template with the prompt, applies key placement,
// executes the request under the hard timeout, and extracts the answer via
// the configured response path.
//
// Error mapping follows the caller contract: ErrTemplate for template
// problems, ErrConfig for unsatisfiable key placement, *TimeoutError on
// deadline, *HTTPError on non-2xx, ErrExtraction when the answer cannot be
// located.
func (c *Caller) Call(ctx context.Context, cfg *domain.EndpointConfig, prompt string) (string, error) {
	body, err := HydrateTemplate(cfg.BodyTemplate, prompt)
	if err != nil {
		return "", err
	}

	requestURL, err := url.Parse(cfg.URL)
	if err != nil {
		return "", fmt.Errorf("%w: invalid endpoint URL: %v", ErrConfig, err)
	}

	header := make(http.Header)
	header.Set("Content-Type", "application/json")
	for k, v := range cfg.Headers {
		header.Set(k, v)
	}

	requestURL, body, err = applyKeyPlacement(cfg, requestURL, header, body)
	if err != nil {
		return "", err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode hydrated body: %v", ErrTemplate, err)
	}

	method := cfg.Method
	if method == "" {
		method = http.MethodPost
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, method, requestURL.String(), bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: failed to build request: %v", ErrConfig, err)
	}
	req.Header = header

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", &TimeoutError{Timeout: c.timeout}
		}
		return "", fmt.Errorf("endpoint call failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read endpoint response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		capture := raw
		if len(capture) > maxErrorBodyBytes {
			capture = capture[:maxErrorBodyBytes]
		}
		return "", &HTTPError{StatusCode: resp.StatusCode, Body: string(capture)}
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("%w: endpoint response is not valid JSON: %v", ErrExtraction, err)
	}

	return ExtractAnswer(doc, cfg.ResponsePath)
}
