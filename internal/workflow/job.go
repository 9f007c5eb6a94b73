package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/fairlens/fairlens/internal/aggregation"
	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/finalization"
)

// Activity names as registered on the worker. Method-name registration
// keeps these in sync with the activity structs.
const (
	activityVerifyProjectOwnership    = "VerifyProjectOwnership"
	activityPreparePromptItems        = "PreparePromptItems"
	activityPrepareManualItems        = "PrepareManualItems"
	activityListSuccessfulCollections = "ListSuccessfulCollections"
	activityCallEndpoint              = "CallEndpoint"
	activityEvaluateResponse          = "EvaluateResponse"
	activityRecordItemResult          = "RecordItemResult"
	activityFinalizeJob               = "FinalizeJob"
	activityMarkJobFailed             = "MarkJobFailed"
)

const (
	// defaultDispatchDelay paces sequential fan-out dispatch so user
	// endpoints and judge providers see a bounded request rate. Skipped
	// before the first item.
	defaultDispatchDelay = 500 * time.Millisecond

	// fanInBaseTimeout and fanInPerItemTimeout bound the wait for all
	// per-item completions: base + per-item * total.
	fanInBaseTimeout    = 2 * time.Minute
	fanInPerItemTimeout = 30 * time.Second
)

// JobRequest is the workflow input: the identity of an already-created job
// row plus the dispatch knobs.
type JobRequest struct {
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`

	// Config is the endpoint configuration for automated jobs; nil for
	// manual jobs.
	Config *domain.EndpointConfig `json:"config,omitempty"`

	// DispatchDelayMillis overrides the inter-item dispatch delay.
	// Zero means the default; negative disables the delay entirely.
	DispatchDelayMillis int `json:"dispatch_delay_millis,omitempty"`
}

// validate checks the request fields every variant requires.
func (r *JobRequest) validate() error {
	if r.JobID == "" || r.UserID == "" || r.ProjectID == "" {
		return fmt.Errorf("job id, user id and project id are required")
	}
	return nil
}

// dispatchDelay resolves the effective inter-item delay.
func (r *JobRequest) dispatchDelay() time.Duration {
	switch {
	case r.DispatchDelayMillis < 0:
		return 0
	case r.DispatchDelayMillis == 0:
		return defaultDispatchDelay
	default:
		return time.Duration(r.DispatchDelayMillis) * time.Millisecond
	}
}

// JobResult is the workflow output: the terminal status and its summary.
type JobResult struct {
	JobID   string            `json:"job_id"`
	Status  domain.JobStatus  `json:"status"`
	Summary domain.JobSummary `json:"summary"`
}

// defaultActivityOptions covers the setup, aggregation, and finalization
// activities: short store operations that retry on transient failure.
func defaultActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}
}

// dispatchActivityOptions covers the per-item call activities. The item
// activities carry their own internal retry and fallback policies, so
// Temporal-level retries stay minimal: they exist to survive worker
// crashes, not provider flakiness.
func dispatchActivityOptions() workflow.ActivityOptions {
	return workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		HeartbeatTimeout:    2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    2,
		},
	}
}

// fanInTimeout bounds the wait for a phase's completions.
func fanInTimeout(total int) time.Duration {
	return fanInBaseTimeout + time.Duration(total)*fanInPerItemTimeout
}

// phaseOutcome is the fan-in result of one dispatch round.
type phaseOutcome struct {
	// allFailed is true when every item of the phase failed. Meaningful
	// only after the phase completed.
	allFailed bool
}

// itemCall produces the per-item result future for one work item. The
// closure captures the phase-specific activity and input shape.
type itemCall func(ctx workflow.Context, item domain.WorkItem) workflow.Future

// runPhase dispatches one fan-out round: items are dispatched sequentially
// with the configured delay, each completion is routed through the
// aggregation activity from its own coroutine, and the main coroutine
// awaits the counter. A fan-in timeout or an aggregation failure aborts
// the workflow; per-item call failures become failed item results instead.
func runPhase(
	ctx workflow.Context,
	req JobRequest,
	phase domain.Phase,
	items []domain.WorkItem,
	call itemCall,
) (phaseOutcome, error) {
	logger := workflow.GetLogger(ctx)
	total := len(items)

	var (
		recorded int
		outcome  phaseOutcome
		fatalErr error
	)

	delay := req.dispatchDelay()
	dispatchCtx := workflow.WithActivityOptions(ctx, dispatchActivityOptions())
	recordCtx := workflow.WithActivityOptions(ctx, defaultActivityOptions())

	for i, item := range items {
		if i > 0 && delay > 0 {
			if err := workflow.Sleep(ctx, delay); err != nil {
				return outcome, err
			}
		}

		item := item
		future := call(dispatchCtx, item)

		workflow.Go(ctx, func(gctx workflow.Context) {
			defer func() { recorded++ }()

			var result domain.ItemResult
			if err := future.Get(gctx, &result); err != nil {
				// The activity exhausted its Temporal retries; the item is
				// failed, not the job.
				logger.Warn("Item call failed after retries",
					"job_id", req.JobID, "phase", phase, "index", item.Index, "error", err)
				result = domain.ItemResult{
					Index:    item.Index,
					Category: item.Category,
					Prompt:   item.PromptText,
					Success:  false,
					Error:    "item processing failed",
				}
			}

			var merged aggregation.RecordItemResultOutput
			err := workflow.ExecuteActivity(recordCtx, activityRecordItemResult,
				aggregation.RecordItemResultInput{
					JobID:  req.JobID,
					Phase:  phase,
					Result: result,
				}).Get(gctx, &merged)
			if err != nil {
				fatalErr = fmt.Errorf("recording item %d: %w", item.Index, err)
				return
			}
			if merged.PhaseComplete {
				outcome.allFailed = merged.AllFailed
			}
		})
	}

	completed, err := workflow.AwaitWithTimeout(ctx, fanInTimeout(total), func() bool {
		return recorded >= total || fatalErr != nil
	})
	if err != nil {
		return outcome, err
	}
	if fatalErr != nil {
		return outcome, fatalErr
	}
	if !completed {
		return outcome, temporal.NewApplicationError(
			fmt.Sprintf("phase %s timed out after %d of %d items", phase, recorded, total),
			"FanInTimeout", nil)
	}

	return outcome, nil
}

// finalize runs the terminal summarization step over the given phase's
// results and shapes the workflow result.
func finalize(ctx workflow.Context, req JobRequest, phase domain.Phase) (*JobResult, error) {
	ctx = workflow.WithActivityOptions(ctx, defaultActivityOptions())

	var out finalization.FinalizeJobOutput
	err := workflow.ExecuteActivity(ctx, activityFinalizeJob,
		finalization.FinalizeJobInput{JobID: req.JobID, Phase: phase}).Get(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("finalizing job: %w", err)
	}

	return &JobResult{JobID: req.JobID, Status: out.Status, Summary: out.Summary}, nil
}

// markFailedOnAbort runs the failure handler from a disconnected context so
// a fatally aborted job never sticks in an interim phase. Best-effort: a
// handler failure is logged, the original error still propagates.
func markFailedOnAbort(ctx workflow.Context, req JobRequest, reason string) {
	dctx, cancel := workflow.NewDisconnectedContext(ctx)
	defer cancel()
	dctx = workflow.WithActivityOptions(dctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	})

	err := workflow.ExecuteActivity(dctx, activityMarkJobFailed,
		finalization.MarkJobFailedInput{JobID: req.JobID, Reason: reason}).Get(dctx, nil)
	if err != nil {
		workflow.GetLogger(ctx).Error("Failure handler did not complete",
			"job_id", req.JobID, "error", err)
	}
}
