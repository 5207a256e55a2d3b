package model

import "fmt"

// Standard error codes.
const (
	ErrBadRequest          = "BAD_REQUEST"
	ErrUnauthorized        = "UNAUTHORIZED"
	ErrForbidden           = "FORBIDDEN"
	ErrNotFound            = "NOT_FOUND"
	ErrRateLimited         = "RATE_LIMITED"
	ErrUnsupportedWorkflow = "UNSUPPORTED_WORKFLOW_TYPE"
	ErrEngineUnavailable   = "ENGINE_UNAVAILABLE"
	ErrInternalError       = "INTERNAL_ERROR"
)

// ErrorEnvelope is the standard error response envelope returned by the
// bridge. It implements the error interface.
type ErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Limit and Current carry rate-limit counts; only set for RATE_LIMITED.
	Limit   int `json:"limit,omitempty"`
	Current int `json:"current,omitempty"`
}

// Error implements the error interface.
func (e *ErrorEnvelope) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError returns a BAD_REQUEST error.
func NewBadRequestError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrBadRequest, Message: msg}
}

// NewUnauthorizedError returns an UNAUTHORIZED error.
func NewUnauthorizedError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrUnauthorized, Message: msg}
}

// NewForbiddenError returns a FORBIDDEN error.
func NewForbiddenError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrForbidden, Message: msg}
}

// NewNotFoundError returns a NOT_FOUND error.
func NewNotFoundError(msg string) *ErrorEnvelope {
	return &ErrorEnvelope{Code: ErrNotFound, Message: msg}
}

// NewUnsupportedWorkflowError returns an UNSUPPORTED_WORKFLOW_TYPE error.
// This is fatal to the calling tool invocation and reported verbatim.
func NewUnsupportedWorkflowError(workflowType string) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrUnsupportedWorkflow,
		Message: fmt.Sprintf("unsupported workflow type: %s", workflowType),
	}
}

// NewEngineUnavailableError returns an ENGINE_UNAVAILABLE error.
func NewEngineUnavailableError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrEngineUnavailable,
		Message: "The workflow engine is temporarily unreachable",
	}
}

// NewRateLimitedError returns a RATE_LIMITED error echoing the entitlement
// and the observed count.
func NewRateLimitedError(limit, current int) *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrRateLimited,
		Message: "Daily message limit reached",
		Limit:   limit,
		Current: current,
	}
}

// NewInternalError returns an INTERNAL_ERROR.
func NewInternalError() *ErrorEnvelope {
	return &ErrorEnvelope{
		Code:    ErrInternalError,
		Message: "An unexpected error occurred",
	}
}
