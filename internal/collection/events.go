package collection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/pkg/activity"
	"github.com/fairlens/fairlens/pkg/events"
)

// endpointCalledEvent records one endpoint call outcome. The extracted
// answer itself is not carried; consumers read it from the item result
// store.
type endpointCalledEvent struct {
	JobID    string    `json:"job_id"`
	Index    int       `json:"index"`
	Category string    `json:"category"`
	Success  bool      `json:"success"`
	Error    string    `json:"error,omitempty"`
	CalledAt time.Time `json:"called_at"`
}

// EventEmitter handles event emission for the collection domain.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates a new EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// EndpointCalledIdempotencyKey generates the deduplication key for one
// endpoint call: H(jobID:index).
func EndpointCalledIdempotencyKey(jobID string, index int) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s:collection-call:%d", jobID, index)
	return hex.EncodeToString(hasher.Sum(nil))
}

// EmitEndpointCalled emits the endpoint call outcome event, best-effort.
func (e *EventEmitter) EmitEndpointCalled(
	ctx context.Context,
	input CallEndpointInput,
	result *domain.ItemResult,
	wfCtx activity.WorkflowContext,
) {
	event := endpointCalledEvent{
		JobID:    input.JobID,
		Index:    input.Item.Index,
		Category: input.Item.Category,
		Success:  result.Success,
		Error:    result.Error,
		CalledAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to marshal endpoint called event",
			"job_id", input.JobID, "error", err)
		return
	}

	envelope := events.Envelope{
		ID:             uuid.New().String(),
		Type:           "collection.endpoint_called",
		Source:         "collection-activity",
		Version:        "1.0.0",
		Timestamp:      time.Now(),
		IdempotencyKey: EndpointCalledIdempotencyKey(input.JobID, input.Item.Index),
		JobID:          input.JobID,
		WorkflowID:     wfCtx.WorkflowID,
		RunID:          wfCtx.RunID,
		Payload:        payload,
	}

	e.base.EmitEventSafe(ctx, envelope, "endpoint called event")
}
