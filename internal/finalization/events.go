package finalization

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

// jobFinalizedEvent records the terminal outcome of a job.
type jobFinalizedEvent struct {
	JobID       string            `json:"job_id"`
	Status      domain.JobStatus  `json:"status"`
	Summary     domain.JobSummary `json:"summary"`
	FinalizedAt time.Time         `json:"finalized_at"`
}

// EventEmitter handles event emission for the finalization domain.
type EventEmitter struct {
	base activity.BaseActivities
}

// NewEventEmitter creates a new EventEmitter with the provided base activities.
func NewEventEmitter(base activity.BaseActivities) *EventEmitter {
	return &EventEmitter{base: base}
}

// JobFinalizedIdempotencyKey generates the deduplication key for a job's
// finalization: H(jobID). One per job regardless of retries.
func JobFinalizedIdempotencyKey(jobID string) string {
	hasher := sha256.New()
	fmt.Fprintf(hasher, "%s:finalized", jobID)
	return hex.EncodeToString(hasher.Sum(nil))
}

// EmitJobFinalized emits the terminal outcome event, best-effort.
func (e *EventEmitter) EmitJobFinalized(
	ctx context.Context,
	jobID string,
	out *FinalizeJobOutput,
	wfCtx activity.WorkflowContext,
) {
	event := jobFinalizedEvent{
		JobID:       jobID,
		Status:      out.Status,
		Summary:     out.Summary,
		FinalizedAt: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		activity.SafeLogError(ctx, "Failed to marshal job finalized event",
			"job_id", jobID, "error", err)
		return
	}

	envelope := events.Envelope{
		ID:             uuid.New().String(),
		Type:           "finalization.job_finalized",
		Source:         "finalization-activity",
		Version:        "1.0.0",
		Timestamp:      time.Now(),
		IdempotencyKey: JobFinalizedIdempotencyKey(jobID),
		JobID:          jobID,
		WorkflowID:     wfCtx.WorkflowID,
		RunID:          wfCtx.RunID,
		Payload:        payload,
	}

	e.base.EmitEventSafe(ctx, envelope, "job finalized event")
}
