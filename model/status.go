package model

import "strings"

// Status is the canonical workflow status observed by this layer. Once a
// workflow reaches a terminal status no further transitions are observed.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
	StatusUnknown   Status = "unknown"
)

// Terminal reports whether the status ends the polling loop.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Workflow step status constants.
const (
	StepStatusPending   = "pending"
	StepStatusRunning   = "running"
	StepStatusCompleted = "completed"
	StepStatusFailed    = "failed"
)

// statusSynonyms maps lowercased engine status strings to canonical values.
var statusSynonyms = map[string]Status{
	"running":   StatusRunning,
	"started":   StatusRunning,
	"completed": StatusCompleted,
	"finished":  StatusCompleted,
	"failed":    StatusFailed,
	"error":     StatusFailed,
	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
}

// CanonicalStatus maps a free-form engine status string to its canonical
// value. The mapping is total and case-insensitive; unrecognized strings map
// to running (recognized=false) so that engine states this layer has never
// seen keep the client polling instead of prematurely declaring completion.
func CanonicalStatus(raw string) (status Status, recognized bool) {
	if s, ok := statusSynonyms[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return s, true
	}
	return StatusRunning, false
}
