// Package workflows holds the durable workflow definitions registered by
// cmd/worker: the step-catalog workflows, the per-conversation trigger
// workflow, and the chat session workflow. The bridge service only starts,
// signals, and queries these; the actual step work is owned by other
// services, so the activities here are placeholders that log and return.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/internal/progress"
	"github.com/muturi/chatbridge/model"
)

// catalogState backs the getStatus query that the bridge's progress
// translator consumes.
type catalogState struct {
	status      string
	currentStep string
	startTime   time.Time
}

// IncidentWorkflow walks the incident step catalog.
func IncidentWorkflow(ctx workflow.Context, input dispatch.IncidentInput) error {
	return runCatalog(ctx, model.WorkflowTypeIncident, input)
}

// DocumentProcessingWorkflow walks the document-processing step catalog.
func DocumentProcessingWorkflow(ctx workflow.Context, input dispatch.DocumentInput) error {
	return runCatalog(ctx, model.WorkflowTypeDocumentProcessing, input)
}

// SemanticSearchWorkflow walks the semantic-search step catalog.
func SemanticSearchWorkflow(ctx workflow.Context, input dispatch.SearchInput) error {
	return runCatalog(ctx, model.WorkflowTypeSemanticSearch, input)
}

// runCatalog executes the type's catalog steps in order as activities, one
// activity per step, exposing a getStatus query over the live position. The
// activity type name is the step name, which is what the history inspector
// matches on.
func runCatalog(ctx workflow.Context, t model.WorkflowType, input any) error {
	state := catalogState{
		status:    string(model.StatusRunning),
		startTime: workflow.Now(ctx),
	}

	err := workflow.SetQueryHandler(ctx, progress.StatusQueryName, func() (progress.StatusPayload, error) {
		return progress.StatusPayload{
			Status:      state.status,
			CurrentStep: state.currentStep,
			StartTime:   state.startTime,
		}, nil
	})
	if err != nil {
		return err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumAttempts:    3,
		},
	})

	for _, step := range model.CatalogFor(t) {
		state.currentStep = step.Name

		var result StepResult
		if err := workflow.ExecuteActivity(ctx, step.Name, input).Get(ctx, &result); err != nil {
			state.status = string(model.StatusFailed)
			return err
		}
	}

	state.status = string(model.StatusCompleted)
	return nil
}
