package exitcode

import (
	"os"
	"strings"

	"github.com/wavectl/wavectl/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// PlanningError indicates the plan could not be built: missing or corrupt
	// input, a scheduling deadlock, or a model-graph cycle
	PlanningError = 3

	// WaveHalt indicates the plan was built but execution must stop at the
	// current wave: placeholder detection, exhausted fix tiers, or a
	// human-gated cascade halt
	WaveHalt = 4

	// NetworkError indicates a network connectivity issue
	NetworkError = 5

	// Interrupted indicates the run was cancelled by the user
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	if err == nil {
		Exit(Success)
		return
	}

	Exit(DetermineExitCode(err))
}

// DetermineExitCode analyzes an error and returns the appropriate exit code.
// Coded errors classify exactly; anything else falls back to message matching.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	if errors.IsHalt(err) {
		return WaveHalt
	}
	if errors.IsPlanning(err) {
		return PlanningError
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "circular dependency") || strings.Contains(errMsg, "cycle detected") {
		return PlanningError
	}
	if strings.Contains(errMsg, "wave halt") || strings.Contains(errMsg, "halted") {
		return WaveHalt
	}
	if strings.Contains(errMsg, "network") || strings.Contains(errMsg, "connection") {
		return NetworkError
	}
	if strings.Contains(errMsg, "unreachable") {
		return NetworkError
	}
	if strings.Contains(errMsg, "invalid flag") || strings.Contains(errMsg, "unknown command") {
		return UsageError
	}
	if strings.Contains(errMsg, "required flag") || strings.Contains(errMsg, "missing argument") {
		return UsageError
	}

	return GeneralError
}

// Description returns a human-readable description of an exit code
func Description(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case PlanningError:
		return "Planning error (plan could not be built)"
	case WaveHalt:
		return "Wave halted (plan built, execution must stop)"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
