package planning

import (
	"errors"
	"fmt"
	"math"
)

// Unreachable is the heuristic value reported together with an unreachable
// or level-limit error. It is never a legitimate level index.
const Unreachable = math.MaxInt

// ErrorClass represents the classification of a planning error.
type ErrorClass string

const (
	// ErrorClassInvalid indicates malformed problem input detected at construction time.
	// Examples: a goal literal outside the vocabulary, a state vector of the wrong size.
	ErrorClassInvalid ErrorClass = "invalid"

	// ErrorClassUnreachable indicates the graph leveled off before the goal was satisfied.
	ErrorClassUnreachable ErrorClass = "unreachable"

	// ErrorClassLimit indicates the caller's level bound was hit before an answer was found.
	ErrorClassLimit ErrorClass = "limit"

	// ErrorClassInternal indicates a broken graph invariant. These are programming errors.
	ErrorClassInternal ErrorClass = "internal"
)

// PlanningError represents a classified error with context.
type PlanningError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Literal is the offending literal, if applicable.
	Literal string `json:"literal,omitempty"`

	// Action is the offending action name, if applicable.
	Action string `json:"action,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`

	// Details contains additional context-specific information.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *PlanningError) Error() string {
	switch {
	case e.Action != "" && e.Literal != "":
		return fmt.Sprintf("[%s] %s (action=%s, literal=%s)%s",
			e.Class, e.Message, e.Action, e.Literal, e.unwrapMessage())
	case e.Action != "":
		return fmt.Sprintf("[%s] %s (action=%s)%s", e.Class, e.Message, e.Action, e.unwrapMessage())
	case e.Literal != "":
		return fmt.Sprintf("[%s] %s (literal=%s)%s", e.Class, e.Message, e.Literal, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s%s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *PlanningError) Unwrap() error {
	return e.Err
}

func (e *PlanningError) unwrapMessage() string {
	if e.Err != nil {
		return ": " + e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
// Two planning errors match when class and code are equal.
func (e *PlanningError) Is(target error) bool {
	t, ok := target.(*PlanningError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewInvalidError creates a new invalid-input error.
func NewInvalidError(message string, err error) *PlanningError {
	return &PlanningError{
		Class:   ErrorClassInvalid,
		Message: message,
		Err:     err,
	}
}

// NewUnreachableError creates a new unreachable-goal error.
func NewUnreachableError(message string) *PlanningError {
	return &PlanningError{
		Class:   ErrorClassUnreachable,
		Message: message,
		Code:    ErrCodeGoalUnreachable,
	}
}

// NewLimitError creates a new level-limit error.
func NewLimitError(message string) *PlanningError {
	return &PlanningError{
		Class:   ErrorClassLimit,
		Message: message,
		Code:    ErrCodeLevelLimit,
	}
}

// NewInternalError creates a new internal invariant error.
func NewInternalError(message string, err error) *PlanningError {
	return &PlanningError{
		Class:   ErrorClassInternal,
		Message: message,
		Code:    ErrCodeInvariant,
		Err:     err,
	}
}

// WithCode adds an error code to an error.
func (e *PlanningError) WithCode(code string) *PlanningError {
	e.Code = code
	return e
}

// WithLiteral adds literal context to an error.
func (e *PlanningError) WithLiteral(literal string) *PlanningError {
	e.Literal = literal
	return e
}

// WithAction adds action context to an error.
func (e *PlanningError) WithAction(action string) *PlanningError {
	e.Action = action
	return e
}

// WithDetail adds a detail field to the error context.
func (e *PlanningError) WithDetail(key string, value interface{}) *PlanningError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ClassOf returns the class of a planning error, or "" for other errors.
func ClassOf(err error) ErrorClass {
	var e *PlanningError
	if errors.As(err, &e) {
		return e.Class
	}
	return ""
}

// CodeOf returns the code of a planning error, or "" for other errors.
func CodeOf(err error) string {
	var e *PlanningError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalid returns true if the error is classified as invalid input.
func IsInvalid(err error) bool {
	return ClassOf(err) == ErrorClassInvalid
}

// IsUnreachable returns true if the error reports an unreachable goal.
func IsUnreachable(err error) bool {
	return ClassOf(err) == ErrorClassUnreachable
}

// IsLevelLimit returns true if the error reports an exhausted level bound.
func IsLevelLimit(err error) bool {
	return ClassOf(err) == ErrorClassLimit
}

// IsInternal returns true if the error reports a broken invariant.
func IsInternal(err error) bool {
	return ClassOf(err) == ErrorClassInternal
}

// Common error codes.
const (
	ErrCodeUnknownFact     = "UNKNOWN_FACT"
	ErrCodeStateSize       = "STATE_SIZE_MISMATCH"
	ErrCodeEmptyVocabulary = "EMPTY_VOCABULARY"
	ErrCodeDuplicateFact   = "DUPLICATE_FACT"
	ErrCodeDuplicateAction = "DUPLICATE_ACTION"
	ErrCodeEmptyActionName = "EMPTY_ACTION_NAME"
	ErrCodeGoalUnreachable = "GOAL_UNREACHABLE"
	ErrCodeLevelLimit      = "LEVEL_LIMIT"
	ErrCodeInvariant       = "INVARIANT_VIOLATION"
)
