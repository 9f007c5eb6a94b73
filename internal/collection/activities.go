// Package collection implements the response-collection phase of automated
// endpoint jobs: one HTTP call per prompt against the user-configured
// endpoint, with failures captured as per-item results rather than activity
// errors so that a single bad prompt never poisons the rest of the fan-out.
package collection

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/sdk/temporal"

	"github.com/fairlens/fairlens/internal/domain"
	"github.com/fairlens/fairlens/internal/endpoint"
	"github.com/fairlens/fairlens/pkg/activity"
)

// Activities handles collection-phase Temporal activities.
type Activities struct {
	activity.BaseActivities
	caller *endpoint.Caller
	events *EventEmitter
}

// NewActivities creates collection activities using the provided endpoint
// caller.
func NewActivities(base activity.BaseActivities, caller *endpoint.Caller) *Activities {
	return &Activities{
		BaseActivities: base,
		caller:         caller,
		events:         NewEventEmitter(base),
	}
}

// CallEndpointInput carries one prompt call against the job's endpoint.
type CallEndpointInput struct {
	JobID  string                 `json:"job_id"`
	Item   domain.WorkItem        `json:"item"`
	Config *domain.EndpointConfig `json:"config"`
}

// CallEndpoint executes one prompt against the user endpoint and returns a
// per-item result. Endpoint-level failures (timeouts, non-2xx responses,
// extraction misses) are reported as failed item results with Success=false,
// never as activity errors: the item is done, it just failed. Only missing
// or structurally invalid input fails the activity itself.
func (a *Activities) CallEndpoint(ctx context.Context, input CallEndpointInput) (*domain.ItemResult, error) {
	if input.JobID == "" {
		return nil, nonRetryable("CallEndpoint", nil, "missing job id")
	}
	if input.Config == nil {
		return nil, nonRetryable("CallEndpoint", nil, "missing endpoint configuration")
	}
	if err := input.Item.Validate(); err != nil {
		return nil, nonRetryable("CallEndpoint", err, "invalid work item")
	}

	result := &domain.ItemResult{
		Index:    input.Item.Index,
		Category: input.Item.Category,
		Prompt:   input.Item.PromptText,
	}

	a.RecordHeartbeat(ctx, fmt.Sprintf("calling endpoint for item %d", input.Item.Index))

	answer, err := a.caller.Call(ctx, input.Config, input.Item.PromptText)
	if err != nil {
		result.Success = false
		result.Error = describeCallError(err)
		activity.SafeLog(ctx, "Endpoint call failed",
			"job_id", input.JobID,
			"index", input.Item.Index,
			"error", result.Error)
	} else {
		result.Success = true
		result.Output = answer
	}

	a.events.EmitEndpointCalled(ctx, input, result, a.GetWorkflowContext(ctx))

	return result, nil
}

// describeCallError maps endpoint caller errors onto the stable,
// user-facing failure messages stored in item results. Raw transport
// details stay out of the stored record.
func describeCallError(err error) string {
	var timeoutErr *endpoint.TimeoutError
	var httpErr *endpoint.HTTPError

	switch {
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("endpoint did not respond within %s", timeoutErr.Timeout)
	case errors.As(err, &httpErr):
		return fmt.Sprintf("endpoint returned HTTP %d", httpErr.StatusCode)
	case errors.Is(err, endpoint.ErrTemplate):
		return "request body template could not be hydrated"
	case errors.Is(err, endpoint.ErrConfig):
		return "endpoint configuration is invalid"
	case errors.Is(err, endpoint.ErrExtraction):
		return "answer could not be extracted from endpoint response"
	default:
		return "endpoint call failed"
	}
}

func nonRetryable(tag string, cause error, msg string) error {
	return temporal.NewNonRetryableApplicationError(msg, tag, cause)
}
