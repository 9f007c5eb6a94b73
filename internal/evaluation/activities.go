// Package evaluation implements the scoring phase: each item's response is
// judged by the primary LLM client, optionally augmented by the secondary
// fairness service, blended into a final score bundle, and persisted keyed
// by (project, user, category, prompt). Per-item failures are captured as
// failed results, not activity errors.
package evaluation

import (
	"context"
	"strings"

	"go.temporal.io/sdk/temporal"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/evaluator"
	"github.com/fairlens/fairlens/internal/jobstore"
	"github.com/fairlens/fairlens/internal/scoring"
	"github.com/fairlens/fairlens/pkg/activity"
)

// Activities handles evaluation-phase Temporal activities.
type Activities struct {
	activity.BaseActivities
	store    *jobstore.Store
	judge    evaluator.Client
	fairness evaluator.FairnessClient
	events   *EventEmitter
}

// NewActivities creates evaluation activities with the provided judge and
// fairness clients.
func NewActivities(
	base activity.BaseActivities,
	store *jobstore.Store,
	judge evaluator.Client,
	fairness evaluator.FairnessClient,
) *Activities {
	return &Activities{
		BaseActivities: base,
		store:          store,
		judge:          judge,
		fairness:       fairness,
		events:         NewEventEmitter(base),
	}
}

// EvaluateResponseInput carries one response to score. For automated jobs
// the response comes from the collection phase; for manual jobs it is the
// caller-supplied text.
type EvaluateResponseInput struct {
	JobID     string          `json:"job_id"`
	UserID    string          `json:"user_id"`
	ProjectID string          `json:"project_id"`
	Item      domain.WorkItem `json:"item"`
}

// EvaluateResponse scores one response. An empty or whitespace-only response
// is a per-item validation failure recorded as a failed result. Judge
// exhaustion never surfaces here: the judge client degrades to a flagged
// neutral result internally, and the item still completes successfully with
// Degraded set on its score bundle.
func (a *Activities) EvaluateResponse(ctx context.Context, input EvaluateResponseInput) (*domain.ItemResult, error) {
	if input.JobID == "" {
		return nil, nonRetryable("EvaluateResponse", nil, "missing job id")
	}
	if err := input.Item.Validate(); err != nil {
		return nil, nonRetryable("EvaluateResponse", err, "invalid work item")
	}

	result := &domain.ItemResult{
		Index:    input.Item.Index,
		Category: input.Item.Category,
		Prompt:   input.Item.PromptText,
	}

	if strings.TrimSpace(input.Item.Response) == "" {
		result.Success = false
		result.Error = "response is empty, nothing to evaluate"
		a.events.EmitResponseEvaluated(ctx, input, result, a.GetWorkflowContext(ctx))
		return result, nil
	}

	a.RecordHeartbeat(ctx, "judging item", input.Item.Index)

	judgeResult, err := a.judge.EvaluateResponse(ctx, input.Item.Category, input.Item.PromptText, input.Item.Response)
	if err != nil {
		// Only context cancellation escapes the judge's degraded fallback.
		return nil, retryable("EvaluateResponse", err, "judge evaluation interrupted")
	}

	fairnessResult := a.fairness.Evaluate(ctx,
		input.ProjectID, input.Item.Category, input.Item.PromptText, input.Item.Response)

	bundle := scoring.Blend(judgeResult, fairnessResult)

	if err := a.store.UpsertEvaluationScore(ctx,
		input.ProjectID, input.UserID, input.Item.Category, input.Item.PromptText, bundle); err != nil {
		return nil, retryable("EvaluateResponse", err, "failed to persist evaluation score")
	}

	result.Success = true
	result.Output = input.Item.Response
	result.Scores = &bundle

	activity.SafeLog(ctx, "Response evaluated",
		"job_id", input.JobID,
		"index", input.Item.Index,
		"degraded", bundle.Degraded)

	a.events.EmitResponseEvaluated(ctx, input, result, a.GetWorkflowContext(ctx))

	return result, nil
}

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
