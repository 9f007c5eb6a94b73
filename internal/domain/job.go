// Package domain defines the core types for fairness evaluation jobs:
// the job record and its status machine, per-item work units and results,
// evaluation score bundles, and job summaries. All workflow and activity
// packages communicate exclusively through these types.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Job-specific errors returned by domain operations.
var (
	// ErrInvalidTransition indicates a status change that the job state
	// machine does not permit.
	ErrInvalidTransition = errors.New("invalid job status transition")

	// ErrUnknownJobType indicates a job type outside the supported set.
	ErrUnknownJobType = errors.New("unknown job type")
)

// JobType distinguishes the two processor variants.
type JobType string

const (
	// JobTypeAutomatedEndpointTest collects responses from a user-configured
	// HTTP endpoint before evaluating them (two-phase progress).
	JobTypeAutomatedEndpointTest JobType = "AUTOMATED_ENDPOINT_TEST"

	// JobTypeManualPromptTest evaluates caller-supplied prompt/response
	// pairs directly (single-phase progress).
	JobTypeManualPromptTest JobType = "MANUAL_PROMPT_TEST"
)

// Valid reports whether the job type is one of the supported variants.
func (t JobType) Valid() bool {
	return t == JobTypeAutomatedEndpointTest || t == JobTypeManualPromptTest
}

// JobStatus captures where a job is in its lifecycle. Interim phases only
// move forward; terminal statuses are immutable.
type JobStatus string

const (
	// StatusCollectingResponses is the first phase of automated jobs:
	// one HTTP call per prompt against the user endpoint.
	StatusCollectingResponses JobStatus = "collecting_responses"

	// StatusEvaluating is the scoring phase common to both job types.
	StatusEvaluating JobStatus = "evaluating"

	// StatusSuccess means every item completed without error.
	StatusSuccess JobStatus = "success"

	// StatusPartialSuccess means at least one item succeeded and at least
	// one failed.
	StatusPartialSuccess JobStatus = "partial_success"

	// StatusFailed means no item succeeded, or the job aborted fatally.
	StatusFailed JobStatus = "failed"
)

// Terminal reports whether the status is one of the three end states.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusPartialSuccess || s == StatusFailed
}

// rank orders statuses so interim phases can only advance.
func (s JobStatus) rank() int {
	switch s {
	case StatusCollectingResponses:
		return 1
	case StatusEvaluating:
		return 2
	case StatusSuccess, StatusPartialSuccess, StatusFailed:
		return 3
	default:
		return 0
	}
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Terminal statuses accept no further transitions, and interim
// phases may only move forward.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	if s.Terminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Job is the unit of work: one fairness/bias evaluation run.
// Identity fields and TotalItems are immutable once created; Status moves
// through the state machine and Progress/Percent are derived from the
// per-item result slots, never written directly by callers.
type Job struct {
	// ID is the internal storage identifier.
	ID int64 `json:"id"`

	// JobID is the external correlation key, unique across all jobs.
	JobID string `json:"job_id" validate:"required"`

	// UserID owns the job and must own the referenced project.
	UserID string `json:"user_id" validate:"required"`

	// ProjectID scopes the job's prompts and persisted scores.
	ProjectID string `json:"project_id" validate:"required"`

	// JobType selects the processor variant.
	JobType JobType `json:"job_type" validate:"required"`

	// Status is the current lifecycle phase.
	Status JobStatus `json:"status" validate:"required"`

	// TotalItems is set once before fan-out begins. Zero-item jobs
	// short-circuit directly to completion with an empty summary.
	TotalItems int `json:"total_items" validate:"min=0"`

	// Config holds the job-specific endpoint configuration. Only populated
	// for automated endpoint jobs.
	Config *EndpointConfig `json:"config,omitempty"`

	// Progress is the human-readable "completed/total" string.
	Progress string `json:"progress"`

	// Percent is the derived completion percentage, clamped to [0,100]
	// and monotonic within a phase.
	Percent int `json:"percent" validate:"min=0,max=100"`

	// CreatedAt and UpdatedAt track record times for the read model.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the job record against its structural requirements.
func (j *Job) Validate() error {
	if err := validate.Struct(j); err != nil {
		return err
	}
	if !j.JobType.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownJobType, j.JobType)
	}
	return nil
}

// InitialStatus returns the phase a freshly created job of the given type
// starts in. Manual prompt jobs skip collection and begin evaluating.
func InitialStatus(t JobType) JobStatus {
	if t == JobTypeManualPromptTest {
		return StatusEvaluating
	}
	return StatusCollectingResponses
}

// KeyPlacement selects where the user endpoint's API key is injected.
type KeyPlacement string

const (
	// PlacementNone sends no key material.
	PlacementNone KeyPlacement = "none"
	// PlacementAuthHeader sends "Authorization: Bearer <key>".
	PlacementAuthHeader KeyPlacement = "auth_header"
	// PlacementXAPIKey sends the key in the X-API-Key header.
	PlacementXAPIKey KeyPlacement = "x_api_key"
	// PlacementQueryParam appends the key to the URL query string.
	PlacementQueryParam KeyPlacement = "query_param"
	// PlacementBodyField injects the key as a top-level body field.
	PlacementBodyField KeyPlacement = "body_field"
)

// Valid reports whether the placement is one of the supported strategies.
func (p KeyPlacement) Valid() bool {
	switch p {
	case PlacementNone, PlacementAuthHeader, PlacementXAPIKey, PlacementQueryParam, PlacementBodyField:
		return true
	}
	return false
}

// EndpointConfig describes how to call the user's endpoint for one job.
// BodyTemplate is JSON text containing the {{PROMPT}} placeholder at least
// once; ResponsePath is a dotted/bracketed expression locating the answer
// string in the JSON response.
type EndpointConfig struct {
	URL          string            `json:"url" validate:"required,url"`
	Method       string            `json:"method,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	BodyTemplate string            `json:"body_template" validate:"required"`
	ResponsePath string            `json:"response_path" validate:"required"`
	APIKey       string            `json:"api_key,omitempty"`
	KeyPlacement KeyPlacement      `json:"key_placement,omitempty"`

	// KeyField overrides the default field/parameter name for the key in
	// query_param and body_field placements.
	KeyField string `json:"key_field,omitempty"`
}

// Validate checks the endpoint configuration.
func (c *EndpointConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.KeyPlacement != "" && !c.KeyPlacement.Valid() {
		return fmt.Errorf("invalid key placement %q", c.KeyPlacement)
	}
	return nil
}
