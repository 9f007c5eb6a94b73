package aggregation

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

// itemCompletedEvent represents one per-item completion routed through the
// aggregator, including the progress view after the merge.
type itemCompletedEvent struct {
	JobID       string       `json:"job_id"`
	Phase       domain.Phase `json:"phase"`
	Index       int          `json:"index"`
	Success     bool         `json:"success"`
	Error       string       `json:"error,omitempty"`
	Completed   int          `json:"completed"`
	Total       int          `json:"total"`
	Percent     int          `json:"percent"`
	CompletedAt time.Time    `json:"completed_at"`
}

// EventEmitter handles event emission for the aggregation domain.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates a new EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// ItemCompletedIdempotencyKey generates the deduplication key for one
// per-item completion: H(jobID:phase:index). Deterministic across retries
// so redelivered events collapse to one.
func ItemCompletedIdempotencyKey(jobID string, phase domain.Phase, index int) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s:%s:%d", jobID, phase, index)
	return hex.EncodeToString(hasher.Sum(nil))
}

// EmitItemCompleted emits the per-item completion event, best-effort.
func (e *EventEmitter) EmitItemCompleted(
	ctx context.Context,
	input RecordItemResultInput,
	out *RecordItemResultOutput,
	wfCtx activity.WorkflowContext,
) {
	event := itemCompletedEvent{
		JobID:       input.JobID,
		Phase:       input.Phase,
		Index:       input.Result.Index,
		Success:     input.Result.Success,
		Error:       input.Result.Error,
		Completed:   out.Completed,
		Total:       out.Total,
		Percent:     out.Percent,
		CompletedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to marshal item completed event",
			"job_id", input.JobID, "error", err)
		return
	}

	envelope := events.Envelope{
		ID:             uuid.New().String(),
		Type:           string(input.Phase) + ".item_completed",
		Source:         "aggregation-activity",
		Version:        "1.0.0",
		Timestamp:      time.Now(),
		IdempotencyKey: ItemCompletedIdempotencyKey(input.JobID, input.Phase, input.Result.Index),
		JobID:          input.JobID,
		WorkflowID:     wfCtx.WorkflowID,
		RunID:          wfCtx.RunID,
		Payload:        payload,
	}

	e.base.EmitEventSafe(ctx, envelope, "item completed event")
}
