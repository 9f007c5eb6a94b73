package workflow

import (
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fairlens/fairlens/internal/aggregation"
	"github.com/fairlens/fairlens/internal/collection"
	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/evaluation"
	"github.com/fairlens/fairlens/internal/preparation"
)

// AutomatedEndpointWorkflow processes an automated endpoint test job:
// ownership verification, prompt materialization, the collection fan-out
// against the user endpoint, the evaluation fan-out over the collected
// responses, and finalization. Progress maps collection onto 0-50% and
// evaluation onto 50-100%; when every endpoint call fails the job is forced
// failed at 50% and evaluation is never dispatched.
func AutomatedEndpointWorkflow(ctx workflow.Context, req JobRequest) (*JobResult, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "automated-endpoint.v", workflow.DefaultVersion, currentVersion)

	if err := req.validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid job request", "Validation", err)
	}
	if req.Config == nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"automated job requires an endpoint configuration", "Validation", nil)
	}

	result, err := runAutomated(ctx, req)
	if err != nil {
		markFailedOnAbort(ctx, req, err.Error())
		return nil, err
	}
	return result, nil
}

func runAutomated(ctx workflow.Context, req JobRequest) (*JobResult, error) {
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
	err = workflow.ExecuteActivity(setupCtx, activityPreparePromptItems,
		preparation.PrepareItemsInput{JobID: req.JobID}).Get(setupCtx, &prepared)
	if err != nil {
		return nil, err
	}

	if prepared.Total == 0 {
		logger.Info("No prompts to process, finalizing immediately", "job_id", req.JobID)
		return finalize(ctx, req, domain.PhaseEvaluation)
	}

	collectCall := func(cctx workflow.Context, item domain.WorkItem) workflow.Future {
		return workflow.ExecuteActivity(cctx, activityCallEndpoint,
			collection.CallEndpointInput{
				JobID:  req.JobID,
				Item:   item,
				Config: req.Config,
			})
	}
	outcome, err := runPhase(ctx, req, domain.PhaseCollection, prepared.Items, collectCall)
	if err != nil {
		return nil, err
	}

	if outcome.allFailed {
		// The aggregator already forced the job to failed with progress
		// locked at 50%. There is nothing to evaluate, but the run still
		// gets its history report, summarized from the collection results.
		logger.Info("Every endpoint call failed, skipping evaluation", "job_id", req.JobID)
		return finalize(ctx, req, domain.PhaseCollection)
	}

	var collected preparation.ListSuccessfulCollectionsOutput
	err = workflow.ExecuteActivity(setupCtx, activityListSuccessfulCollections,
		preparation.ListSuccessfulCollectionsInput{JobID: req.JobID}).Get(setupCtx, &collected)
	if err != nil {
		return nil, err
	}

	// Collection failures carry forward as failed evaluation results so the
	// evaluation phase fills every slot and the final summary counts them.
	for _, failed := range collected.Failed {
		err = workflow.ExecuteActivity(setupCtx, activityRecordItemResult,
			aggregation.RecordItemResultInput{
				JobID:  req.JobID,
				Phase:  domain.PhaseEvaluation,
				Result: failed,
			}).Get(setupCtx, nil)
		if err != nil {
			return nil, err
		}
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
	if _, err := runPhase(ctx, req, domain.PhaseEvaluation, collected.Items, evaluateCall); err != nil {
		return nil, err
	}

	return finalize(ctx, req, domain.PhaseEvaluation)
}
