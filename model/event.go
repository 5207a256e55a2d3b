package model

import "time"

// Event priority values accepted from the extractor.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ValidPriority reports whether p is one of the accepted priority values.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// WorkflowEvent is the structured trigger extracted from a chat message or
// supplied directly by an API caller. It is consumed exactly once by the
// dispatcher and never persisted by this layer.
type WorkflowEvent struct {
	EventType string         `json:"event_type"`
	Source    string         `json:"source,omitempty"`
	Message   string         `json:"message"`
	Priority  string         `json:"priority,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	ChatID    string         `json:"chat_id,omitempty"`
	UserID    string         `json:"user_id,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// DispatchResult identifies the durable execution a dispatched event landed
// on.
type DispatchResult struct {
	WorkflowID   string       `json:"workflow_id"`
	RunID        string       `json:"run_id,omitempty"`
	WorkflowType WorkflowType `json:"workflow_type"`
}
