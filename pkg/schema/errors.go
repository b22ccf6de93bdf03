package schema

import (
	"errors"
	"fmt"
)

// Error codes for structured error reporting.
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeExecution            = "EXECUTION_ERROR"
	ErrCodeNotFound             = "NOT_FOUND"
	ErrCodeConflict             = "CONFLICT"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeExpression           = "EXPRESSION_ERROR"
	ErrCodeCoercion             = "COERCION_ERROR"
	ErrCodeMappingFailed        = "MAPPING_FAILED"
	ErrCodeUnresolvedTarget     = "UNRESOLVED_TARGET"
	ErrCodeStateKindMismatch    = "STATE_KIND_MISMATCH"
	ErrCodeStateCreation        = "STATE_CREATION_FAILED"
	ErrCodePrecondition         = "PRECONDITION_FAILED"
	ErrCodeNoMatchingTransition = "NO_MATCHING_TRANSITION"
	ErrCodeStore                = "STORE_ERROR"
)

// FlowError is the structured error type for all flow building and execution
// operations.
type FlowError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	StateID string         `json:"state_id,omitempty"`
	Cause   error          `json:"-"`
}

func (e *FlowError) Error() string {
	if e.StateID != "" {
		return fmt.Sprintf("[%s] state %s: %s", e.Code, e.StateID, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Cause
}

// NewError creates a new FlowError.
func NewError(code, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

// NewErrorf creates a new FlowError with a formatted message.
func NewErrorf(code, format string, args ...any) *FlowError {
	return &FlowError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithState attaches a state ID to the error.
func (e *FlowError) WithState(stateID string) *FlowError {
	e.StateID = stateID
	return e
}

// WithCause attaches an underlying cause.
func (e *FlowError) WithCause(err error) *FlowError {
	e.Cause = err
	return e
}

// WithDetails attaches key-value details.
func (e *FlowError) WithDetails(details map[string]any) *FlowError {
	e.Details = details
	return e
}

// IsCode reports whether any FlowError in err's chain carries the given code.
func IsCode(err error, code string) bool {
	var fe *FlowError
	for err != nil {
		if !errors.As(err, &fe) {
			return false
		}
		if fe.Code == code {
			return true
		}
		err = fe.Cause
	}
	return false
}
