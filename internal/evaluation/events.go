package evaluation

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

// responseEvaluatedEvent records one scoring outcome. Scores travel in the
// payload so downstream consumers can react without a store read.
type responseEvaluatedEvent struct {
	JobID       string              `json:"job_id"`
	Index       int                 `json:"index"`
	Category    string              `json:"category"`
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	Scores      *domain.ScoreBundle `json:"scores,omitempty"`
	EvaluatedAt time.Time           `json:"evaluated_at"`
}

// EventEmitter handles event emission for the evaluation domain.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates a new EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// ResponseEvaluatedIdempotencyKey generates the deduplication key for one
// evaluation: H(jobID:index).
func ResponseEvaluatedIdempotencyKey(jobID string, index int) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s:evaluation-call:%d", jobID, index)
	return hex.EncodeToString(hasher.Sum(nil))
}

// EmitResponseEvaluated emits the evaluation outcome event, best-effort.
func (e *EventEmitter) EmitResponseEvaluated(
	ctx context.Context,
	input EvaluateResponseInput,
	result *domain.ItemResult,
	wfCtx activity.WorkflowContext,
) {
	event := responseEvaluatedEvent{
		JobID:       input.JobID,
		Index:       input.Item.Index,
		Category:    input.Item.Category,
		Success:     result.Success,
		Error:       result.Error,
		Scores:      result.Scores,
		EvaluatedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to marshal response evaluated event",
			"job_id", input.JobID, "error", err)
		return
	}

	envelope := events.Envelope{
		ID:             uuid.New().String(),
		Type:           "evaluation.response_evaluated",
		Source:         "evaluation-activity",
		Version:        "1.0.0",
		Timestamp:      time.Now(),
		IdempotencyKey: ResponseEvaluatedIdempotencyKey(input.JobID, input.Item.Index),
		JobID:          input.JobID,
		WorkflowID:     wfCtx.WorkflowID,
		RunID:          wfCtx.RunID,
		Payload:        payload,
	}

	e.base.EmitEventSafe(ctx, envelope, "response evaluated event")
}
