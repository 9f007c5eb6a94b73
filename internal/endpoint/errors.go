package endpoint

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for caller misconfiguration. These are fatal per item:
// the processor records them as item failures and the job continues.
var (
	// ErrTemplate indicates the body template is not valid JSON or never
	// contains the prompt placeholder.
	ErrTemplate = errors.New("template error")

	// ErrConfig indicates an API-key placement that the hydrated request
	// cannot satisfy.
	ErrConfig = errors.New("config error")

	// ErrExtraction indicates the response path resolved to nothing or to
	// a non-string value.
	ErrExtraction = errors.New("extraction error")
)

// TimeoutError reports that the endpoint call exceeded its hard deadline.
// It carries the configured duration so item failure messages can state the
// limit that was applied.
type TimeoutError struct {
	Timeout time.Duration
}

// Error returns the timeout message with the configured duration.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("endpoint call timed out after %s", e.Timeout)
}

// HTTPError reports a non-2xx endpoint response, carrying the response body
// when one was readable and the status code otherwise.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error returns the status and any captured body.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("endpoint returned status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("endpoint returned status %d", e.StatusCode)
}
