package progress

import (
	"context"
	"encoding/json"
	"strings"

	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	historypb "go.temporal.io/api/history/v1"
	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/model"
)

// Inspector summarizes a workflow's event history for one named step. The
// result is derived on demand and never cached.
type Inspector struct {
	provider *engine.Provider
	logger   *zap.Logger
}

// NewInspector creates an Inspector.
func NewInspector(provider *engine.Provider, logger *zap.Logger) *Inspector {
	return &Inspector{provider: provider, logger: logger}
}

// Inspect fetches the workflow's history and keeps events whose scheduled
// activity-type name contains stepName, plus activity-completion events.
// Each kept event is projected to {eventType, timestamp, payload} where the
// payload is the completion result, else the failure detail, else the
// original schedule input — first non-empty wins. A history-fetch failure
// degrades to a minimal detail object; it never surfaces as an error.
func (i *Inspector) Inspect(ctx context.Context, workflowID, stepName string) model.StepDetail {
	ctx, span := observability.StartSpan(ctx, "progress.inspect",
		observability.AttrWorkflowID.String(workflowID),
		observability.AttrStepName.String(stepName),
	)
	defer span.End()

	degraded := model.StepDetail{
		StepName:   stepName,
		WorkflowID: workflowID,
		Message:    "not available",
	}

	c, err := i.provider.Get(ctx)
	if err != nil {
		i.logger.Warn("step inspection skipped, engine unreachable", zap.Error(err))
		return degraded
	}

	events, err := c.GetHistory(ctx, workflowID)
	if err != nil {
		i.logger.Warn("history fetch failed during step inspection",
			zap.String("workflow_id", workflowID),
			zap.String("step", stepName),
			zap.Error(err),
		)
		return degraded
	}

	// First pass: find the scheduled-event ids belonging to this step, so
	// completion/failure events can be attributed to it.
	scheduledIDs := make(map[int64]bool)
	for _, evt := range events {
		attrs := evt.GetActivityTaskScheduledEventAttributes()
		if attrs == nil {
			continue
		}
		if strings.Contains(attrs.GetActivityType().GetName(), stepName) {
			scheduledIDs[evt.GetEventId()] = true
		}
	}

	var details []model.StepEvent
	for _, evt := range events {
		var payload any
		keep := false

		switch evt.GetEventType() {
		case enumspb.EVENT_TYPE_ACTIVITY_TASK_SCHEDULED:
			attrs := evt.GetActivityTaskScheduledEventAttributes()
			if !scheduledIDs[evt.GetEventId()] {
				continue
			}
			keep = true
			payload = decodePayloads(attrs.GetInput())
		case enumspb.EVENT_TYPE_ACTIVITY_TASK_COMPLETED:
			attrs := evt.GetActivityTaskCompletedEventAttributes()
			keep = true
			payload = decodePayloads(attrs.GetResult())
		case enumspb.EVENT_TYPE_ACTIVITY_TASK_FAILED:
			attrs := evt.GetActivityTaskFailedEventAttributes()
			if !scheduledIDs[attrs.GetScheduledEventId()] {
				continue
			}
			keep = true
			payload = attrs.GetFailure().GetMessage()
		}

		if !keep {
			continue
		}
		details = append(details, projectEvent(evt, payload))
	}

	return model.StepDetail{
		StepName:   stepName,
		WorkflowID: workflowID,
		Events:     len(details),
		Details:    details,
	}
}

func projectEvent(evt *historypb.HistoryEvent, payload any) model.StepEvent {
	se := model.StepEvent{
		EventType: evt.GetEventType().String(),
		Payload:   payload,
	}
	if t := evt.GetEventTime(); t != nil {
		se.Timestamp = t.AsTime()
	}
	return se
}

// decodePayloads renders the first payload as decoded JSON where possible,
// falling back to the raw string form. The engine's default data converter
// stores JSON bytes in the payload data.
func decodePayloads(payloads *commonpb.Payloads) any {
	if payloads == nil || len(payloads.GetPayloads()) == 0 {
		return nil
	}
	data := payloads.GetPayloads()[0].GetData()
	if len(data) == 0 {
		return nil
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err == nil {
		return decoded
	}
	return string(data)
}
