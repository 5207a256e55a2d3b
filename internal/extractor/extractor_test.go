package extractor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

// stubClassifier returns a fixed classification or error.
type stubClassifier struct {
	result Classification
	err    error
}

func (s *stubClassifier) Classify(context.Context, string, string) (Classification, error) {
	return s.result, s.err
}

func TestExtract_positiveClassification(t *testing.T) {
	e := New(&stubClassifier{result: Classification{
		IsWorkflowEvent: true,
		EventType:       "incident_detected",
		Priority:        "critical",
		Reasoning:       "message reports a system outage",
	}}, zap.NewNop())

	c := e.Extract(context.Background(), "We have a critical system outage", "")
	if !c.IsWorkflowEvent {
		t.Fatal("IsWorkflowEvent = false")
	}
	if c.EventType != "incident_detected" || c.Priority != "critical" {
		t.Errorf("classification = %+v", c)
	}
}

func TestExtract_classifierErrorIsSwallowed(t *testing.T) {
	e := New(&stubClassifier{err: fmt.Errorf("upstream timeout")}, zap.NewNop())

	c := e.Extract(context.Background(), "We have a critical system outage", "")
	if c.IsWorkflowEvent {
		t.Error("IsWorkflowEvent = true after classifier failure")
	}
	if c.Reasoning != "extraction error" {
		t.Errorf("Reasoning = %q, want %q", c.Reasoning, "extraction error")
	}
}

func TestExtract_nilClassifierDegrades(t *testing.T) {
	e := New(nil, zap.NewNop())

	c := e.Extract(context.Background(), "we have an outage", "")
	if c.IsWorkflowEvent || c.Reasoning != "extraction error" {
		t.Errorf("classification = %+v", c)
	}
}

func TestExtract_keywordScreenSkipsClassifier(t *testing.T) {
	called := false
	e := New(&recordingClassifier{called: &called}, zap.NewNop())
	e.Prescreen = true

	c := e.Extract(context.Background(), "what's the weather like", "")
	if c.IsWorkflowEvent {
		t.Error("IsWorkflowEvent = true for screened-out message")
	}
	if called {
		t.Error("classifier was called for a message without workflow vocabulary")
	}
}

func TestExtract_classifierDecidesWithoutPrescreen(t *testing.T) {
	called := false
	e := New(&recordingClassifier{called: &called}, zap.NewNop())

	c := e.Extract(context.Background(), "what's the weather like", "")
	if !called {
		t.Error("classifier not consulted when pre-screen is off")
	}
	if !c.IsWorkflowEvent {
		t.Errorf("classification = %+v, want the classifier's verdict", c)
	}
}

type recordingClassifier struct {
	called *bool
}

func (r *recordingClassifier) Classify(context.Context, string, string) (Classification, error) {
	*r.called = true
	return Classification{IsWorkflowEvent: true, EventType: "incident_detected", Reasoning: "x"}, nil
}

func TestExtract_invalidPriorityDropped(t *testing.T) {
	e := New(&stubClassifier{result: Classification{
		IsWorkflowEvent: true,
		EventType:       "incident_detected",
		Priority:        "urgent",
		Reasoning:       "ok",
	}}, zap.NewNop())

	c := e.Extract(context.Background(), "outage", "")
	if c.Priority != "" {
		t.Errorf("Priority = %q, want dropped", c.Priority)
	}
}

func TestCreateEvent(t *testing.T) {
	e := New(nil, zap.NewNop())
	fixed := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	c := Classification{
		IsWorkflowEvent: true,
		EventType:       "document_uploaded",
		Source:          "s3",
		Priority:        "medium",
		Metadata:        map[string]any{"uri": "s3://b/doc.pdf"},
		Reasoning:       "upload announced",
	}
	event := e.CreateEvent(c, "please index this PDF", "chat-7", "user-9")
	if event == nil {
		t.Fatal("event = nil for positive classification")
	}
	if event.EventType != "document_uploaded" || event.ChatID != "chat-7" || event.UserID != "user-9" {
		t.Errorf("event = %+v", event)
	}
	if !event.Timestamp.Equal(fixed) {
		t.Errorf("Timestamp = %v, want %v", event.Timestamp, fixed)
	}
}

func TestCreateEvent_negativeClassification(t *testing.T) {
	e := New(nil, zap.NewNop())
	if event := e.CreateEvent(Classification{Reasoning: "small talk"}, "Hello, how are you?", "c", "u"); event != nil {
		t.Errorf("event = %+v, want nil", event)
	}
}

func TestDetectWorkflowKeywords(t *testing.T) {
	tests := []struct {
		message string
		want    bool
	}{
		{"Hello, how are you?", false},
		{"We have a critical system outage", true},
		{"please upload the new PDF", true},
		{"kick off the batch pipeline", true},
		{"what's the weather like", false},
		{"SEV1 declared for payments", true},
	}
	for _, tt := range tests {
		if got := DetectWorkflowKeywords(tt.message); got != tt.want {
			t.Errorf("DetectWorkflowKeywords(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}
