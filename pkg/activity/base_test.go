package activity

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairlens/fairlens/pkg/events"
)

func TestGetWorkflowContextFallback(t *testing.T) {
	base := NewBaseActivities(nil)

	wfCtx := base.GetWorkflowContext(context.Background())
	assert.True(t, strings.HasPrefix(wfCtx.WorkflowID, "test-workflow-"))
	assert.True(t, strings.HasPrefix(wfCtx.RunID, "test-run-"))
	assert.Equal(t, "test-activity", wfCtx.ActivityID)
}

func TestEmitEventSafeWithoutSink(t *testing.T) {
	base := NewBaseActivities(nil)

	assert.NotPanics(t, func() {
		base.EmitEventSafe(context.Background(), events.Envelope{Type: "test.event"}, "test event")
	})
}
