package aggregation

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/jobstore"
	"github.com/fairlens/fairlens/pkg/activity"
)

// Activities handles aggregation-specific Temporal activities: merging
// per-item completions into the job record and driving phase transitions.
type Activities struct {
	activity.BaseActivities
	store  *jobstore.Store
	events *EventEmitter
}

// NewActivities creates aggregation activities with the provided
// dependencies.
func NewActivities(base activity.BaseActivities, store *jobstore.Store) *Activities {
	return &Activities{
		BaseActivities: base,
		store:          store,
		events:         NewEventEmitter(base),
	}
}

// RecordItemResultInput carries one per-item completion event. The
// identifying fields (job id, index) are captured at dispatch time by the
// processor, never reconstructed from a wrapping envelope.
type RecordItemResultInput struct {
	JobID  string            `json:"job_id"`
	Phase  domain.Phase      `json:"phase"`
	Result domain.ItemResult `json:"result"`
}

// RecordItemResultOutput reports the aggregator's view after the merge.
// PhaseComplete is the fan-in signal: true once every slot of the phase is
// populated. AllFailed is only meaningful when PhaseComplete is true.
type RecordItemResultOutput struct {
	Inserted      bool   `json:"inserted"`
	Completed     int    `json:"completed"`
	Total         int    `json:"total"`
	PhaseComplete bool   `json:"phase_complete"`
	AllFailed     bool   `json:"all_failed"`
	Percent       int    `json:"percent"`
	Progress      string `json:"progress"`
}

// RecordItemResult merges one per-item completion into the job's slot map
// and recomputes progress. Safe under duplicate delivery: an
// already-populated slot is left untouched and the previously computed
// state is returned unchanged. The collection-to-evaluating and
// phase-to-terminal transitions fire exactly once per job because only the
// call that populates the final slot observes Inserted && PhaseComplete.
func (a *Activities) RecordItemResult(
	ctx context.Context,
	input RecordItemResultInput,
) (*RecordItemResultOutput, error) {
	if input.JobID == "" {
		return nil, nonRetryable("RecordItemResult", nil, "missing job id")
	}

	job, err := a.store.GetJob(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			return nil, nonRetryable("RecordItemResult", err, "job not found")
		}
		return nil, retryable("RecordItemResult", err, "failed to load job")
	}

	inserted, completed, err := a.store.MergeItemResult(ctx, input.JobID, input.Phase, input.Result)
	if err != nil {
		return nil, retryable("RecordItemResult", err, "failed to merge item result")
	}

	total := job.TotalItems
	model := ModelForJobType(job.JobType)
	percent := Percent(model, input.Phase, completed, total)
	progress := ProgressString(completed, total)

	out := &RecordItemResultOutput{
		Inserted:      inserted,
		Completed:     completed,
		Total:         total,
		PhaseComplete: completed >= total && total > 0,
		Percent:       percent,
		Progress:      progress,
	}

	if err := a.store.SetProgress(ctx, input.JobID, progress, percent); err != nil {
		return nil, retryable("RecordItemResult", err, "failed to record progress")
	}

	if out.PhaseComplete {
		_, failed, err := a.store.CountItemResults(ctx, input.JobID, input.Phase)
		if err != nil {
			return nil, retryable("RecordItemResult", err, "failed to count failures")
		}
		out.AllFailed = failed >= total

		// Only the arrival that populated the final slot crosses the
		// threshold; duplicates and racing stragglers see Inserted=false
		// and must not re-transition.
		if inserted && input.Phase == domain.PhaseCollection {
			if err := a.transitionAfterCollection(ctx, input.JobID, out.AllFailed); err != nil {
				return nil, err
			}
		}
	}

	a.events.EmitItemCompleted(ctx, input, out, a.GetWorkflowContext(ctx))

	activity.SafeLog(ctx, "Item result recorded",
		"job_id", input.JobID,
		"phase", input.Phase,
		"index", input.Result.Index,
		"inserted", inserted,
		"progress", progress)

	return out, nil
}

// transitionAfterCollection advances an automated job once collection
// completes: forced failed (locked at 50%) when every endpoint call failed,
// otherwise into the evaluating phase.
func (a *Activities) transitionAfterCollection(ctx context.Context, jobID string, allFailed bool) error {
	next := domain.StatusEvaluating
	if allFailed {
		next = domain.StatusFailed
	}
	if err := a.store.UpdateStatus(ctx, jobID, next); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) {
			// Another delivery already advanced the job; nothing to do.
			return nil
		}
		return retryable("RecordItemResult", err, "failed to advance job phase")
	}
	return nil
}

// Error helpers - wrap errors as Temporal application errors.

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
