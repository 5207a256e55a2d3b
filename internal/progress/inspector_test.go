package progress

import (
	"context"
	"fmt"
	"testing"
	"time"

	commonpb "go.temporal.io/api/common/v1"
	enumspb "go.temporal.io/api/enums/v1"
	failurepb "go.temporal.io/api/failure/v1"
	historypb "go.temporal.io/api/history/v1"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/muturi/chatbridge/internal/engine/enginetest"
)

func jsonPayloads(s string) *commonpb.Payloads {
	return &commonpb.Payloads{Payloads: []*commonpb.Payload{{Data: []byte(s)}}}
}

func scheduledEvent(id int64, activity, input string) *historypb.HistoryEvent {
	return &historypb.HistoryEvent{
		EventId:   id,
		EventType: enumspb.EVENT_TYPE_ACTIVITY_TASK_SCHEDULED,
		EventTime: timestamppb.New(time.Date(2026, 8, 1, 10, 0, int(id), 0, time.UTC)),
		Attributes: &historypb.HistoryEvent_ActivityTaskScheduledEventAttributes{
			ActivityTaskScheduledEventAttributes: &historypb.ActivityTaskScheduledEventAttributes{
				ActivityType: &commonpb.ActivityType{Name: activity},
				Input:        jsonPayloads(input),
			},
		},
	}
}

func completedEvent(id, scheduledID int64, result string) *historypb.HistoryEvent {
	return &historypb.HistoryEvent{
		EventId:   id,
		EventType: enumspb.EVENT_TYPE_ACTIVITY_TASK_COMPLETED,
		EventTime: timestamppb.New(time.Date(2026, 8, 1, 10, 0, int(id), 0, time.UTC)),
		Attributes: &historypb.HistoryEvent_ActivityTaskCompletedEventAttributes{
			ActivityTaskCompletedEventAttributes: &historypb.ActivityTaskCompletedEventAttributes{
				ScheduledEventId: scheduledID,
				Result:           jsonPayloads(result),
			},
		},
	}
}

func failedEvent(id, scheduledID int64, message string) *historypb.HistoryEvent {
	return &historypb.HistoryEvent{
		EventId:   id,
		EventType: enumspb.EVENT_TYPE_ACTIVITY_TASK_FAILED,
		EventTime: timestamppb.New(time.Date(2026, 8, 1, 10, 0, int(id), 0, time.UTC)),
		Attributes: &historypb.HistoryEvent_ActivityTaskFailedEventAttributes{
			ActivityTaskFailedEventAttributes: &historypb.ActivityTaskFailedEventAttributes{
				ScheduledEventId: scheduledID,
				Failure:          &failurepb.Failure{Message: message},
			},
		},
	}
}

func TestInspect_filtersToStep(t *testing.T) {
	history := []*historypb.HistoryEvent{
		scheduledEvent(1, "fetch_document", `{"uri":"s3://b/doc.pdf"}`),
		completedEvent(2, 1, `{"bytes":2048}`),
		scheduledEvent(3, "chunking", `{"chunk_size":512}`),
		completedEvent(4, 3, `{"chunks":14}`),
	}
	fake := &enginetest.FakeClient{
		HistoryFn: func(context.Context, string) ([]*historypb.HistoryEvent, error) {
			return history, nil
		},
	}
	inspector := NewInspector(enginetest.Provider(fake), zap.NewNop())

	detail := inspector.Inspect(context.Background(), "document_processing-1", "chunking")

	if detail.StepName != "chunking" || detail.WorkflowID != "document_processing-1" {
		t.Fatalf("identifiers = %q / %q", detail.StepName, detail.WorkflowID)
	}
	// The chunking schedule event plus both completion events are kept;
	// the fetch_document schedule is not.
	if detail.Events != 3 {
		t.Fatalf("Events = %d, want 3", detail.Events)
	}
	for _, evt := range detail.Details {
		if evt.EventType == enumspb.EVENT_TYPE_ACTIVITY_TASK_SCHEDULED.String() {
			payload, ok := evt.Payload.(map[string]any)
			if !ok {
				t.Fatalf("schedule payload type = %T", evt.Payload)
			}
			if payload["chunk_size"] != float64(512) {
				t.Errorf("schedule payload = %v", payload)
			}
		}
	}
}

func TestInspect_failurePayloadIsMessage(t *testing.T) {
	history := []*historypb.HistoryEvent{
		scheduledEvent(1, "generate_embeddings", `{}`),
		failedEvent(2, 1, "embedding backend unavailable"),
	}
	fake := &enginetest.FakeClient{
		HistoryFn: func(context.Context, string) ([]*historypb.HistoryEvent, error) {
			return history, nil
		},
	}
	inspector := NewInspector(enginetest.Provider(fake), zap.NewNop())

	detail := inspector.Inspect(context.Background(), "document_processing-1", "generate_embeddings")
	if detail.Events != 2 {
		t.Fatalf("Events = %d, want 2", detail.Events)
	}
	last := detail.Details[len(detail.Details)-1]
	if last.Payload != "embedding backend unavailable" {
		t.Errorf("failure payload = %v", last.Payload)
	}
}

func TestInspect_degradesOnHistoryFailure(t *testing.T) {
	fake := &enginetest.FakeClient{
		HistoryFn: func(context.Context, string) ([]*historypb.HistoryEvent, error) {
			return nil, fmt.Errorf("history service unavailable")
		},
	}
	inspector := NewInspector(enginetest.Provider(fake), zap.NewNop())

	detail := inspector.Inspect(context.Background(), "incident-1", "triage")
	if detail.Message != "not available" {
		t.Errorf("Message = %q, want %q", detail.Message, "not available")
	}
	if detail.Events != 0 || len(detail.Details) != 0 {
		t.Errorf("degraded detail carries events: %+v", detail)
	}
}
