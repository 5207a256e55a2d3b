package model

import "time"

// User types for rate-limiting entitlements.
const (
	UserTypeGuest         = "guest"
	UserTypeAuthenticated = "authenticated"
)

// ChatSessionState mirrors the durable per-conversation session execution.
// One instance exists per conversation; it is created on the first message
// and torn down on explicit termination or engine-side inactivity timeout.
type ChatSessionState struct {
	SessionID    string         `json:"session_id"`
	UserID       string         `json:"user_id,omitempty"`
	UserType     string         `json:"user_type"`
	MessageCount int            `json:"message_count"`
	IsActive     bool           `json:"is_active"`
	LastActivity time.Time      `json:"last_activity"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// SessionMessage is one entry in a session's bounded message history.
type SessionMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// RateLimitResult is the machine-readable outcome of a guest entitlement
// check. Limited means the triggering request must be rejected outright.
type RateLimitResult struct {
	Limited bool `json:"rate_limited"`
	Limit   int  `json:"limit"`
	Current int  `json:"current"`
}
