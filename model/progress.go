package model

import "time"

// WorkflowProgress is the canonical progress view reconstructed per request
// from the engine's status payload. Invariants: 0 <= CompletedSteps <=
// TotalSteps, and CompletedSteps never decreases across polls while the
// workflow is running.
type WorkflowProgress struct {
	WorkflowID       string       `json:"workflow_id"`
	WorkflowType     WorkflowType `json:"workflow_type"`
	Status           Status       `json:"status"`
	RawStatus        string       `json:"raw_status,omitempty"`
	CurrentStep      string       `json:"current_step"`
	CurrentStepIndex int          `json:"current_step_index"`
	TotalSteps       int          `json:"total_steps"`
	CompletedSteps   int          `json:"completed_steps"`
	StartTime        time.Time    `json:"start_time,omitempty"`
	// EstimatedDuration is the linear remaining-time estimate in seconds;
	// zero once the workflow is terminal.
	EstimatedDuration int `json:"estimated_duration,omitempty"`
}

// WorkflowStep is the presentable state of one catalog step.
type WorkflowStep struct {
	WorkflowID string     `json:"workflow_id"`
	StepName   string     `json:"step_name"`
	StepLabel  string     `json:"step_label,omitempty"`
	StepIndex  int        `json:"step_index"`
	Status     string     `json:"status"`
	StartTime  *time.Time `json:"start_time,omitempty"`
	EndTime    *time.Time `json:"end_time,omitempty"`
	Duration   string     `json:"duration,omitempty"`
	Result     any        `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	Details    string     `json:"details,omitempty"`
}

// StepEvent is one history event attributed to a step during drill-down.
type StepEvent struct {
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// StepDetail is the on-demand drill-down for one named step. It is derived
// from the engine's event history and never cached. The degraded form,
// returned when the history fetch fails, carries only the identifiers and a
// message.
type StepDetail struct {
	StepName   string      `json:"step_name"`
	WorkflowID string      `json:"workflow_id"`
	Events     int         `json:"events"`
	Details    []StepEvent `json:"details,omitempty"`
	Message    string      `json:"message,omitempty"`
}
