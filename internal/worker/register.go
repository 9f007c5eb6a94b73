// Package worker exposes helpers to register workflows/activities with a Temporal worker.
package worker

import (
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/fairlens/fairlens/internal/aggregation"
	"github.com/fairlens/fairlens/internal/collection"
	"github.com/fairlens/fairlens/internal/endpoint"
	"github.com/fairlens/fairlens/internal/evaluation"
	"github.com/fairlens/fairlens/internal/evaluator"
	"github.com/fairlens/fairlens/internal/finalization"
	"github.com/fairlens/fairlens/internal/jobstore"
	"github.com/fairlens/fairlens/internal/preparation"
	"github.com/fairlens/fairlens/internal/workflow"
	"github.com/fairlens/fairlens/pkg/activity"
	"github.com/fairlens/fairlens/pkg/events"
)

// RegisterAll registers all workflows and activities with the Temporal
// worker. Must be called during worker initialization before the worker
// starts; registration is not thread-safe.
//
// Domain-specific activity instances share one base for common concerns
// like event emission and logging.
func RegisterAll(
	w sdkworker.Worker,
	store *jobstore.Store,
	judge evaluator.Client,
	fairness evaluator.FairnessClient,
) {
	eventSink := events.NewNoOpEventSink()
	base := activity.NewBaseActivities(eventSink)

	preparationActivities := preparation.NewActivities(base, store)
	collectionActivities := collection.NewActivities(base, endpoint.NewCaller())
	evaluationActivities := evaluation.NewActivities(base, store, judge, fairness)
	aggregationActivities := aggregation.NewActivities(base, store)
	finalizationActivities := finalization.NewActivities(base, store)

	w.RegisterWorkflow(workflow.AutomatedEndpointWorkflow)
	w.RegisterWorkflow(workflow.ManualPromptWorkflow)

	w.RegisterActivity(preparationActivities.VerifyProjectOwnership)
	w.RegisterActivity(preparationActivities.PreparePromptItems)
	w.RegisterActivity(preparationActivities.PrepareManualItems)
	w.RegisterActivity(preparationActivities.ListSuccessfulCollections)
	w.RegisterActivity(collectionActivities.CallEndpoint)
	w.RegisterActivity(evaluationActivities.EvaluateResponse)
	w.RegisterActivity(aggregationActivities.RecordItemResult)
	w.RegisterActivity(finalizationActivities.FinalizeJob)
	w.RegisterActivity(finalizationActivities.MarkJobFailed)
}
