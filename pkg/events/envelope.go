// Package events provides the generic event infrastructure for per-item
// completion and job lifecycle events. It defines the Envelope type that
// wraps event payloads with consistent metadata and the EventSink interface
// for event storage/transmission.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope wraps domain events with consistent metadata for reliable event
// processing. Delivery is at-least-once; consumers deduplicate on
// IdempotencyKey.
type Envelope struct {
	// ID uniquely identifies this event instance.
	ID string `json:"id"`

	// Type identifies the event for routing and processing.
	// Examples: "collection.item_completed", "evaluation.item_completed".
	Type string `json:"type"`

	// Source identifies the component that emitted this event.
	Source string `json:"source"`

	// Version enables schema evolution, following semantic versioning.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// IdempotencyKey ensures exactly-once processing during retries.
	// Generated deterministically from job id, phase, and item index.
	IdempotencyKey string `json:"idempotency_key"`

	// JobID correlates the event with its job.
	JobID string `json:"job_id"`

	// WorkflowID and RunID identify the workflow execution that emitted
	// the event, distinguishing retries of the same job.
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`

	// Payload contains the event-specific data as JSON.
	Payload json.RawMessage `json:"payload"`
}

// EventSink is the destination for emitted events. Implementations must
// treat duplicate idempotency keys as no-ops and return quickly; events are
// observability data, never load-bearing for correctness.
type EventSink interface {
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink is a null implementation of EventSink for testing or when
// events are disabled.
type NoOpEventSink struct{}

// Append implements EventSink.Append with no-op behavior.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a new no-op event sink.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }
