package predictor

import (
	"fmt"
	"strings"
)

// ProcessError means the predictor process could not be started.
type ProcessError struct {
	Command string
	Err     error
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("predictor %s: failed to start: %v", e.Command, e.Err)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// ExitError means the predictor exited with a non-zero status.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("predictor %s: exited with code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// OutputParseError means stdout was empty or not a JSON document.
type OutputParseError struct {
	Command string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("predictor %s: failed to parse output: %v (raw: %q, stderr: %q)",
		e.Command, e.Err, truncate(e.Stdout, 512), truncate(e.Stderr, 512))
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// ApplicationError carries the error field the predictor embedded in its
// JSON output.
type ApplicationError struct {
	Command string
	Message string
}

func (e *ApplicationError) Error() string {
	return fmt.Sprintf("predictor %s: %s", e.Command, e.Message)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
