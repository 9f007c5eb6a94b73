package workflow

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/evaluation"
	"github.com/fairlens/fairlens/internal/preparation"
)

// ManualPromptWorkflow processes a manual prompt test job: ownership
// verification, loading the caller-supplied prompt/response pairs, the
// evaluation fan-out, and finalization. Progress is single-phase: evaluated
// items map directly onto 0-100%.
func ManualPromptWorkflow(ctx workflow.Context, req JobRequest) (*JobResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "manual-prompt.v", workflow.DefaultVersion, currentVersion)

	if err := req.validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid job request", "Validation", err)
	}

	result, err := runManual(ctx, req)
	if err != nil {
		markFailedOnAbort(ctx, req, err.Error())
		return nil, err
	}
	return result, nil
}

func runManual(ctx workflow.Context, req JobRequest) (*JobResult, error) {
	logger := workflow.GetLogger(ctx)
	setupCtx := workflow.WithActivityOptions(ctx, defaultActivityOptions())

	err := workflow.ExecuteActivity(setupCtx, activityVerifyProjectOwnership,
		preparation.VerifyOwnershipInput{
			JobID:     req.JobID,
			UserID:    req.UserID,
			ProjectID: req.ProjectID,
		}).Get(setupCtx, nil)
	if err != nil {
		return nil, err
	}

	var prepared preparation.PrepareItemsOutput
	err = workflow.ExecuteActivity(setupCtx, activityPrepareManualItems,
		preparation.PrepareItemsInput{JobID: req.JobID}).Get(setupCtx, &prepared)
	if err != nil {
		return nil, err
	}

	if prepared.Total == 0 {
		logger.Info("No items to evaluate, finalizing immediately", "job_id", req.JobID)
		return finalize(ctx, req, domain.PhaseEvaluation)
	}

	evaluateCall := func(cctx workflow.Context, item domain.WorkItem) workflow.Future {
		return workflow.ExecuteActivity(cctx, activityEvaluateResponse,
			evaluation.EvaluateResponseInput{
				JobID:     req.JobID,
				UserID:    req.UserID,
				ProjectID: req.ProjectID,
				Item:      item,
			})
	}
	if _, err := runPhase(ctx, req, domain.PhaseEvaluation, prepared.Items, evaluateCall); err != nil {
		return nil, err
	}

	return finalize(ctx, req, domain.PhaseEvaluation)
}
