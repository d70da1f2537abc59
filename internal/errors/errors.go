package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Task-list errors (TASK-001 to TASK-099)
	ErrCodeTaskListNotFound    ErrorCode = "TASK-001"
	ErrCodeTaskListUnreadable  ErrorCode = "TASK-002"
	ErrCodeTaskListWriteFailed ErrorCode = "TASK-003"

	// Planning errors (PLAN-001 to PLAN-099)
	ErrCodePlanNotFound    ErrorCode = "PLAN-001"
	ErrCodePlanInvalid     ErrorCode = "PLAN-002"
	ErrCodePlanDeadlock    ErrorCode = "PLAN-003"
	ErrCodePlanCorrupt     ErrorCode = "PLAN-004"
	ErrCodePlanTaskUnknown ErrorCode = "PLAN-005"

	// Model-graph errors (GRAPH-001 to GRAPH-099)
	ErrCodeGraphCycle    ErrorCode = "GRAPH-001"
	ErrCodeGraphManifest ErrorCode = "GRAPH-002"

	// Verification pipeline errors (VERIFY-001 to VERIFY-099)
	ErrCodeVerifyInternal ErrorCode = "VERIFY-001"
	ErrCodeVerifyManifest ErrorCode = "VERIFY-002"

	// Provider errors (PROVIDER-001 to PROVIDER-099)
	ErrCodeProviderUnreachable ErrorCode = "PROVIDER-001"
	ErrCodeProviderNoAuth      ErrorCode = "PROVIDER-002"
	ErrCodeProviderTimeout     ErrorCode = "PROVIDER-003"

	// Wave execution errors (RUN-001 to RUN-099)
	ErrCodeWaveIncomplete ErrorCode = "RUN-001"

	// Halt conditions (HALT-001 to HALT-099).
	// These mean "the plan was built, but wave execution must stop here".
	// They are classified separately from planning errors at exit.
	ErrCodeHaltPlaceholder ErrorCode = "HALT-001"
	ErrCodeHaltTiers       ErrorCode = "HALT-002"
	ErrCodeHaltCascade     ErrorCode = "HALT-003"
	ErrCodeHaltInternal    ErrorCode = "HALT-004"

	// File I/O errors (IO-001 to IO-099)
	ErrCodeFileNotFound    ErrorCode = "IO-001"
	ErrCodeFileReadFailed  ErrorCode = "IO-002"
	ErrCodeFileWriteFailed ErrorCode = "IO-003"
	ErrCodeFileUnmarshal   ErrorCode = "IO-004"
	ErrCodeFileMarshal     ErrorCode = "IO-005"
)

// Error represents an enhanced error with code, suggestions, and a cause
type Error struct {
	Code        ErrorCode
	Message     string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	// Error code and message
	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	// Add cause if present
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	// Add suggestions
	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new coded Error
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a new coded Error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// WithSuggestion adds a suggestion to the error
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// WithSuggestions adds multiple suggestions to the error
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// IsHalt reports whether err carries a HALT-* code, i.e. the wave must stop
// but the plan itself was valid.
func IsHalt(err error) bool {
	var werr *Error
	if errors.As(err, &werr) {
		return strings.HasPrefix(string(werr.Code), "HALT-")
	}
	return false
}

// IsPlanning reports whether err is a fatal planning error: the plan could
// not be built at all.
func IsPlanning(err error) bool {
	var werr *Error
	if errors.As(err, &werr) {
		code := string(werr.Code)
		return strings.HasPrefix(code, "PLAN-") ||
			strings.HasPrefix(code, "TASK-") ||
			strings.HasPrefix(code, "GRAPH-")
	}
	return false
}

// Common error constructors for frequently used errors

// NewTaskListNotFoundError creates a task-list file not found error
func NewTaskListNotFoundError(path string) *Error {
	return New(ErrCodeTaskListNotFound, fmt.Sprintf("task list not found: %s", path)).
		WithSuggestion("Check if the file path is correct").
		WithSuggestion("Pass --tasks to point at your task list")
}

// NewPlanDeadlockError creates an unresolvable-scheduling error
func NewPlanDeadlockError(stuck []string) *Error {
	return New(ErrCodePlanDeadlock,
		fmt.Sprintf("circular dependency or unresolvable conflicts detected (stuck tasks: %s)",
			strings.Join(stuck, ", "))).
		WithSuggestion("Check for dependency cycles between the listed tasks").
		WithSuggestion("Remove contradictory 'after'/'depends on' references")
}

// NewGraphCycleError creates a model-graph cycle error
func NewGraphCycleError(cyclePath string) *Error {
	return New(ErrCodeGraphCycle, fmt.Sprintf("model dependency cycle detected: %s", cyclePath)).
		WithSuggestion("Break the cycle by removing one of the upstream references").
		WithSuggestion("Run 'wavectl graph' to inspect the full dependency graph")
}

// NewPlanCorruptError creates a corrupt plan file error
func NewPlanCorruptError(path string, cause error) *Error {
	return Wrap(ErrCodePlanCorrupt, fmt.Sprintf("invalid JSON in plan file: %s", path), cause).
		WithSuggestion("Re-run 'wavectl plan' to regenerate the execution plan")
}

// NewWaveHaltError creates a halt-condition error for the given reason code
func NewWaveHaltError(code ErrorCode, reason string) *Error {
	return New(code, reason).
		WithSuggestion("Resolve the reported condition, then re-run the wave")
}

// NewFileUnmarshalError creates an unmarshal error
func NewFileUnmarshalError(path string, format string, cause error) *Error {
	return Wrap(ErrCodeFileUnmarshal, fmt.Sprintf("failed to parse %s file: %s", format, path), cause).
		WithSuggestion("Check the file syntax and format").
		WithSuggestion(fmt.Sprintf("Ensure the file is valid %s", format))
}
