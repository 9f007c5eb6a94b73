// Package preparation implements the setup steps that run before fan-out:
// project ownership verification, work item materialization, and loading
// collected responses for the evaluation phase.
package preparation

import (
	"context"
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/jobstore"
	"github.com/fairlens/fairlens/pkg/activity"
)

// Activities handles preparation-phase Temporal activities.
type Activities struct {
	activity.BaseActivities
	store *jobstore.Store
}

// NewActivities creates preparation activities backed by the job store.
func NewActivities(base activity.BaseActivities, store *jobstore.Store) *Activities {
	return &Activities{BaseActivities: base, store: store}
}

// VerifyOwnershipInput identifies the job whose project ownership to check.
type VerifyOwnershipInput struct {
	JobID     string `json:"job_id"`
	UserID    string `json:"user_id"`
	ProjectID string `json:"project_id"`
}

// VerifyProjectOwnership confirms the job's user owns the referenced
// project. A missing project or an ownership mismatch is fatal and
// non-retryable: retrying cannot make someone own a project.
func (a *Activities) VerifyProjectOwnership(ctx context.Context, input VerifyOwnershipInput) error {
	owner, err := a.store.ProjectOwner(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, jobstore.ErrProjectNotFound) {
			return nonRetryable("VerifyProjectOwnership", err, "project does not exist")
		}
		return retryable("VerifyProjectOwnership", err, "failed to load project")
	}
	if owner != input.UserID {
		return nonRetryable("VerifyProjectOwnership", nil, "user does not own project")
	}

	activity.SafeLog(ctx, "Project ownership verified",
		"job_id", input.JobID, "project_id", input.ProjectID)
	return nil
}

// PrepareItemsInput identifies the job to materialize work items for.
type PrepareItemsInput struct {
	JobID string `json:"job_id"`
}

// PrepareItemsOutput carries the materialized fan-out set.
type PrepareItemsOutput struct {
	Items []domain.WorkItem `json:"items"`
	Total int               `json:"total"`
}

// PreparePromptItems loads the shared prompt set for an automated job,
// snapshots it as the job's immutable work items, and records the fan-out
// size. Idempotent: redelivery re-snapshots the same set.
func (a *Activities) PreparePromptItems(ctx context.Context, input PrepareItemsInput) (*PrepareItemsOutput, error) {
	items, err := a.store.ListPrompts(ctx)
	if err != nil {
		return nil, retryable("PreparePromptItems", err, "failed to load prompt set")
	}

	if err := a.store.InsertWorkItems(ctx, input.JobID, items); err != nil {
		return nil, retryable("PreparePromptItems", err, "failed to snapshot work items")
	}
	if err := a.store.SetTotalItems(ctx, input.JobID, len(items)); err != nil {
		return nil, retryable("PreparePromptItems", err, "failed to record item count")
	}

	activity.SafeLog(ctx, "Prompt items prepared",
		"job_id", input.JobID, "total", len(items))
	return &PrepareItemsOutput{Items: items, Total: len(items)}, nil
}

// PrepareManualItems loads the caller-supplied prompt/response pairs that
// were stored when the manual job was created, and records the fan-out size.
func (a *Activities) PrepareManualItems(ctx context.Context, input PrepareItemsInput) (*PrepareItemsOutput, error) {
	items, err := a.store.ListWorkItems(ctx, input.JobID)
	if err != nil {
		return nil, retryable("PrepareManualItems", err, "failed to load work items")
	}

	if err := a.store.SetTotalItems(ctx, input.JobID, len(items)); err != nil {
		return nil, retryable("PrepareManualItems", err, "failed to record item count")
	}

	activity.SafeLog(ctx, "Manual items prepared",
		"job_id", input.JobID, "total", len(items))
	return &PrepareItemsOutput{Items: items, Total: len(items)}, nil
}

// ListSuccessfulCollectionsInput identifies the job whose collected
// responses to load.
type ListSuccessfulCollectionsInput struct {
	JobID string `json:"job_id"`
}

// ListSuccessfulCollectionsOutput carries the evaluation-phase fan-out set:
// one work item per successfully collected response, ordered by the original
// item index so evaluation dispatch order is deterministic. Failed carries
// the collection failures so they can be recorded as failed evaluation
// results too; the evaluation phase fills every slot of the job, and a
// prompt that never got a response still counts against the final summary.
type ListSuccessfulCollectionsOutput struct {
	Items  []domain.WorkItem   `json:"items"`
	Failed []domain.ItemResult `json:"failed,omitempty"`
	Total  int                 `json:"total"`
}

// ListSuccessfulCollections loads the collection results, reshaping the
// successful ones into evaluation work items carrying the collected
// response and passing the failures through for carry-forward.
func (a *Activities) ListSuccessfulCollections(
	ctx context.Context,
	input ListSuccessfulCollectionsInput,
) (*ListSuccessfulCollectionsOutput, error) {
	results, err := a.store.ListItemResults(ctx, input.JobID, domain.PhaseCollection)
	if err != nil {
		return nil, retryable("ListSuccessfulCollections", err, "failed to load collection results")
	}

	out := &ListSuccessfulCollectionsOutput{}
	for _, r := range results {
		if !r.Success {
			out.Failed = append(out.Failed, domain.ItemResult{
				Index:    r.Index,
				Category: r.Category,
				Prompt:   r.Prompt,
				Success:  false,
				Error:    r.Error,
			})
			continue
		}
		out.Items = append(out.Items, domain.WorkItem{
			Index:      r.Index,
			Category:   r.Category,
			PromptText: r.Prompt,
			Response:   r.Output,
		})
	}
	out.Total = len(out.Items)

	return out, nil
}

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}

func retryable(tag string, cause error, msg string) error {
	return temporal.NewApplicationError(msg, tag, cause)
}
