package jobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairlens/fairlens/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestJob(t *testing.T, store *Store, jobType domain.JobType) *domain.Job {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.CreateProject(ctx, "proj-1", "user-1", "demo"))

	job := &domain.Job{
		JobID:     "job-" + string(jobType),
		UserID:    "user-1",
		ProjectID: "proj-1",
		JobType:   jobType,
		Status:    domain.InitialStatus(jobType),
		Progress:  "0/0",
	}
	require.NoError(t, store.CreateJob(ctx, job))
	return job
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := createTestJob(t, store, domain.JobTypeAutomatedEndpointTest)

	t.Run("load round trip", func(t *testing.T) {
		got, err := store.GetJob(ctx, job.JobID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCollectingResponses, got.Status)
		assert.Equal(t, "user-1", got.UserID)
	})

	t.Run("missing job", func(t *testing.T) {
		_, err := store.GetJob(ctx, "nope")
		assert.ErrorIs(t, err, ErrJobNotFound)
	})

	t.Run("forward transitions only", func(t *testing.T) {
		require.NoError(t, store.UpdateStatus(ctx, job.JobID, domain.StatusEvaluating))

		// Same status again is a no-op, not an error.
		require.NoError(t, store.UpdateStatus(ctx, job.JobID, domain.StatusEvaluating))

		// Backwards is forbidden.
		err := store.UpdateStatus(ctx, job.JobID, domain.StatusCollectingResponses)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		require.NoError(t, store.UpdateStatus(ctx, job.JobID, domain.StatusPartialSuccess))

		// Terminal is immutable.
		err = store.UpdateStatus(ctx, job.JobID, domain.StatusFailed)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	})
}

func TestProjectOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateProject(ctx, "proj-1", "user-1", "demo"))

	owner, err := store.ProjectOwner(ctx, "proj-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", owner)

	_, err = store.ProjectOwner(ctx, "missing")
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestSetProgressMonotonic(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := createTestJob(t, store, domain.JobTypeManualPromptTest)

	require.NoError(t, store.SetProgress(ctx, job.JobID, "3/10", 30))
	require.NoError(t, store.SetProgress(ctx, job.JobID, "1/10", 10))

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	// Progress string reflects the latest write, percent never regresses.
	assert.Equal(t, "1/10", got.Progress)
	assert.Equal(t, 30, got.Percent)

	require.NoError(t, store.SetProgress(ctx, job.JobID, "10/10", 150))
	got, err = store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, 100, got.Percent)
}

func TestMergeItemResultIdempotence(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := createTestJob(t, store, domain.JobTypeManualPromptTest)

	first := domain.ItemResult{Index: 0, Success: true, Output: "original"}
	inserted, completed, err := store.MergeItemResult(ctx, job.JobID, domain.PhaseEvaluation, first)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, 1, completed)

	// Duplicate delivery with different content must not overwrite the slot.
	dup := domain.ItemResult{Index: 0, Success: false, Error: "late duplicate"}
	inserted, completed, err = store.MergeItemResult(ctx, job.JobID, domain.PhaseEvaluation, dup)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, 1, completed)

	results, err := store.ListItemResults(ctx, job.JobID, domain.PhaseEvaluation)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "original", results[0].Output)
}

func TestMergeItemResultPhaseIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := createTestJob(t, store, domain.JobTypeAutomatedEndpointTest)

	_, _, err := store.MergeItemResult(ctx, job.JobID, domain.PhaseCollection,
		domain.ItemResult{Index: 0, Success: true, Output: "collected"})
	require.NoError(t, err)

	// Same index in a different phase is a distinct slot.
	inserted, completed, err := store.MergeItemResult(ctx, job.JobID, domain.PhaseEvaluation,
		domain.ItemResult{Index: 0, Success: true})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, 1, completed)

	total, failed, err := store.CountItemResults(ctx, job.JobID, domain.PhaseCollection)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 0, failed)
}

func TestListResultsOrderedByIndex(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := createTestJob(t, store, domain.JobTypeManualPromptTest)

	// Arrive out of order.
	for _, idx := range []int{2, 0, 1} {
		result := domain.ItemResult{Index: idx, Success: idx != 1}
		if idx == 1 {
			result.Error = "boom"
		}
		_, _, err := store.MergeItemResult(ctx, job.JobID, domain.PhaseEvaluation, result)
		require.NoError(t, err)
	}

	results, err := store.ListItemResults(ctx, job.JobID, domain.PhaseEvaluation)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}

	successes, err := store.ListSuccessfulResults(ctx, job.JobID, domain.PhaseEvaluation)
	require.NoError(t, err)
	require.Len(t, successes, 2)
	assert.Equal(t, 0, successes[0].Index)
	assert.Equal(t, 2, successes[1].Index)
}

func TestWorkItemsAndPrompts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	job := createTestJob(t, store, domain.JobTypeManualPromptTest)

	items := []domain.WorkItem{
		{Index: 0, Category: "gender", PromptText: "q0", Response: "a0"},
		{Index: 1, Category: "race", PromptText: "q1", Response: "a1"},
	}
	require.NoError(t, store.InsertWorkItems(ctx, job.JobID, items))
	// Redelivered setup is harmless.
	require.NoError(t, store.InsertWorkItems(ctx, job.JobID, items))

	got, err := store.ListWorkItems(ctx, job.JobID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[1].Response)

	prompts := []domain.WorkItem{
		{Index: 0, Category: "gender", PromptText: "shared prompt"},
	}
	require.NoError(t, store.SeedPrompts(ctx, prompts))
	gotPrompts, err := store.ListPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, gotPrompts, 1)
	assert.Equal(t, "shared prompt", gotPrompts[0].PromptText)
}

func TestEvaluationScoreUpsert(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	bundle := domain.ScoreBundle{Bias: domain.Float(0.2), BiasVerdict: "Low"}
	require.NoError(t, store.UpsertEvaluationScore(ctx, "proj", "user", "gender", "q", bundle))

	updated := domain.ScoreBundle{Bias: domain.Float(0.8), BiasVerdict: "High"}
	require.NoError(t, store.UpsertEvaluationScore(ctx, "proj", "user", "gender", "q", updated))

	got, err := store.GetEvaluationScore(ctx, "proj", "user", "gender", "q")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.InDelta(t, 0.8, *got.Bias, 1e-9)

	missing, err := store.GetEvaluationScore(ctx, "proj", "user", "gender", "other")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestHistoryReportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	report := HistoryReport{
		JobID:        "job-h",
		TotalPrompts: 2,
		SuccessCount: 1,
		FailureCount: 1,
		Errors:       []string{"endpoint returned HTTP 502"},
		Config:       map[string]any{"url": "https://api.example.com", "api_key": RedactedValue},
	}
	require.NoError(t, store.UpsertHistoryReport(ctx, report))

	got, err := store.GetHistoryReport(ctx, "job-h")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 2, got.TotalPrompts)
	assert.Equal(t, RedactedValue, got.Config["api_key"])

	missing, err := store.GetHistoryReport(ctx, "job-x")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
