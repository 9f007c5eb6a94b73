// Package finalization implements the terminal steps of a job: summarizing
// evaluation results into a terminal status, persisting the immutable
// history report for automated jobs, and the best-effort failure handler
// that marks aborted jobs failed.
package finalization

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/fairlens/fairlens/internal/aggregation"
	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/jobstore"
	"github.com/fairlens/fairlens/pkg/activity"
)

// Activities handles finalization-phase Temporal activities.
type Activities struct {
	activity.BaseActivities
	store  *jobstore.Store
	events *EventEmitter
}

// NewActivities creates finalization activities backed by the job store.
func NewActivities(base activity.BaseActivities, store *jobstore.Store) *Activities {
	return &Activities{
		BaseActivities: base,
		store:          store,
		events:         NewEventEmitter(base),
	}
}

// FinalizeJobInput identifies the job to finalize and the phase its
// terminal summary is built from.
type FinalizeJobInput struct {
	JobID string `json:"job_id"`

	// Phase selects the result set the summary covers. Empty means the
	// evaluation phase; collection is used when every endpoint call failed
	// and evaluation was never dispatched.
	Phase domain.Phase `json:"phase,omitempty"`
}

// FinalizeJobOutput reports the terminal outcome.
type FinalizeJobOutput struct {
	Status  domain.JobStatus  `json:"status"`
	Summary domain.JobSummary `json:"summary"`
}

// FinalizeJob summarizes the results of the selected phase, advances the
// job to its terminal status, and persists the history report for automated
// jobs. History persistence is best-effort: a report failure is logged but
// never blocks the terminal transition, since the job outcome is already
// decided.
func (a *Activities) FinalizeJob(ctx context.Context, input FinalizeJobInput) (*FinalizeJobOutput, error) {
	if input.JobID == "" {
		return nil, nonRetryable("FinalizeJob", nil, "missing job id")
	}
	phase := input.Phase
	if phase == "" {
		phase = domain.PhaseEvaluation
	}

	job, err := a.store.GetJob(ctx, input.JobID)
	if err != nil {
		if errors.Is(err, jobstore.ErrJobNotFound) {
			return nil, nonRetryable("FinalizeJob", err, "job not found")
		}
		return nil, retryable("FinalizeJob", err, "failed to load job")
	}

	results, err := a.store.ListItemResults(ctx, input.JobID, phase)
	if err != nil {
		return nil, retryable("FinalizeJob", err, "failed to load phase results")
	}

	summary := domain.SummarizeResults(results)
	status := summary.TerminalStatus()

	if err := a.store.UpdateStatus(ctx, input.JobID, status); err != nil {
		if !errors.Is(err, domain.ErrInvalidTransition) {
			return nil, retryable("FinalizeJob", err, "failed to set terminal status")
		}
		// Redelivered finalization on an already-terminal job; keep going so
		// the history report still lands.
	}
	percent := 100
	if phase == domain.PhaseCollection {
		// Evaluation never ran; progress stays at the collection ceiling.
		percent = aggregation.Percent(aggregation.TwoPhase, domain.PhaseCollection,
			summary.Total, summary.Total)
	}
	if err := a.store.SetProgress(ctx, input.JobID,
		progressString(summary.Total), percent); err != nil {
		return nil, retryable("FinalizeJob", err, "failed to record final progress")
	}

	if job.JobType == domain.JobTypeAutomatedEndpointTest {
		a.persistHistory(ctx, job, summary, results)
	}

	out := &FinalizeJobOutput{Status: status, Summary: summary}
	a.events.EmitJobFinalized(ctx, input.JobID, out, a.GetWorkflowContext(ctx))

	activity.SafeLog(ctx, "Job finalized",
		"job_id", input.JobID,
		"status", status,
		"successful", summary.Successful,
		"failed", summary.Failed)

	return out, nil
}

// persistHistory builds and stores the immutable report, redacting
// secret-like config fields first. Failures are swallowed after logging.
func (a *Activities) persistHistory(
	ctx context.Context,
	job *domain.Job,
	summary domain.JobSummary,
	results []domain.ItemResult,
) {
	var errs []string
	for _, r := range results {
		if !r.Success && r.Error != "" {
			errs = append(errs, r.Error)
		}
	}

	report := jobstore.HistoryReport{
		JobID:         job.JobID,
		TotalPrompts:  summary.Total,
		SuccessCount:  summary.Successful,
		FailureCount:  summary.Failed,
		AverageScores: summary,
		Results:       results,
		Errors:        errs,
		Config:        redactedConfig(job.Config),
	}

	if err := a.store.UpsertHistoryReport(ctx, report); err != nil {
		activity.SafeLogError(ctx, "Failed to persist history report",
			"job_id", job.JobID, "error", err)
	}
}

// redactedConfig converts the endpoint config to a generic document and
// redacts secret-like fields.
func redactedConfig(cfg *domain.EndpointConfig) map[string]any {
	if cfg == nil {
		return nil
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}
	return jobstore.RedactConfig(doc)
}

// MarkJobFailedInput identifies a fatally aborted job.
type MarkJobFailedInput struct {
	JobID  string `json:"job_id"`
	Reason string `json:"reason,omitempty"`
}

// MarkJobFailed forces the job to failed after a fatal workflow error. Runs
// under a disconnected context so it executes even when the workflow itself
// was cancelled. An already-terminal job is left untouched.
func (a *Activities) MarkJobFailed(ctx context.Context, input MarkJobFailedInput) error {
	if input.JobID == "" {
		return nonRetryable("MarkJobFailed", nil, "missing job id")
	}

	if err := a.store.UpdateStatus(ctx, input.JobID, domain.StatusFailed); err != nil {
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, jobstore.ErrJobNotFound) {
			activity.SafeLog(ctx, "Job already terminal, failure mark skipped",
				"job_id", input.JobID)
			return nil
		}
		return retryable("MarkJobFailed", err, "failed to mark job failed")
	}

	activity.SafeLog(ctx, "Job marked failed",
		"job_id", input.JobID, "reason", input.Reason)
	return nil
}

func progressString(total int) string {
	return fmt.Sprintf("%d/%d", total, total)
}

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
