package workflows

import (
	"fmt"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/sdk/workflow"

	"github.com/muturi/chatbridge/internal/dispatch"
	"github.com/muturi/chatbridge/model"
)

const (
	// triggerIdleTimeout bounds how long an idle trigger instance lingers
	// before completing; the next event signal-with-starts a fresh one.
	triggerIdleTimeout = time.Hour

	// triggersPerRun caps the events handled by a single run before
	// continue-as-new keeps the history bounded.
	triggersPerRun = 200
)

// ChatTriggerWorkflow is the per-conversation dispatch loop. It drains
// trigger signals and starts the mapped downstream workflow for each event,
// so the dispatch decision itself is durable: an event signaled here
// survives bridge restarts.
func ChatTriggerWorkflow(ctx workflow.Context) error {
	logger := workflow.GetLogger(ctx)
	ch := workflow.GetSignalChannel(ctx, dispatch.TriggerSignalName)

	handled := 0
	for handled < triggersPerRun {
		var event model.WorkflowEvent
		ok, _ := ch.ReceiveWithTimeout(ctx, triggerIdleTimeout, &event)
		if !ok {
			return nil
		}

		if err := startForEvent(ctx, event); err != nil {
			logger.Error("trigger dispatch failed", "event_type", event.EventType, "error", err)
		}
		handled++
	}

	// Drain anything already delivered before rolling the history over.
	for {
		var event model.WorkflowEvent
		if !ch.ReceiveAsync(&event) {
			break
		}
		if err := startForEvent(ctx, event); err != nil {
			logger.Error("trigger dispatch failed", "event_type", event.EventType, "error", err)
		}
	}
	return workflow.NewContinueAsNewError(ctx, ChatTriggerWorkflow)
}

// startForEvent starts the downstream workflow for one event as an
// abandoned child, fire-and-forget: the trigger only guarantees the start,
// not the outcome. Duplicate events for the same conversation collapse onto
// the same child id.
func startForEvent(ctx workflow.Context, event model.WorkflowEvent) error {
	workflowType, workflowName, taskQueue, args, err := dispatch.Plan(event)
	if err != nil {
		return err
	}

	tag := event.ChatID
	if tag == "" {
		tag = fmt.Sprintf("%d", workflow.Now(ctx).UnixNano())
	}

	childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
		WorkflowID:        model.WorkflowID(workflowType, tag),
		TaskQueue:         taskQueue,
		ParentClosePolicy: enumspb.PARENT_CLOSE_POLICY_ABANDON,
	})

	future := workflow.ExecuteChildWorkflow(childCtx, workflowName, args...)

	// Wait only for the start to be accepted; the child runs on.
	var execution workflow.Execution
	return future.GetChildWorkflowExecution().Get(childCtx, &execution)
}
