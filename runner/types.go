package runner

import (
	"fmt"
	"time"
)

// TestStatus represents the outcome of one (implementation, test) execution
type TestStatus int

const (
	StatusPending TestStatus = iota
	StatusRunning
	StatusSucceeded
	// StatusInputError means the test-case input could not be read.
	StatusInputError
	// StatusExecError means the implementation crashed or exited non-zero.
	StatusExecError
	// StatusTimeout means execution exceeded the per-test bound and was killed.
	StatusTimeout
)

func (s TestStatus) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusRunning:
		return "RUNNING"
	case StatusSucceeded:
		return "SUCCEEDED"
	case StatusInputError:
		return "INPUT_ERROR"
	case StatusExecError:
		return "EXEC_ERROR"
	case StatusTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Failed reports whether the status is a terminal failure
func (s TestStatus) Failed() bool {
	return s == StatusInputError || s == StatusExecError || s == StatusTimeout
}

// TestCase is one serialized input unit, identified by its 1-based index
type TestCase struct {
	Index int
	Path  string
	Ext   string
}

// TestResult records the outcome of one test-case execution
type TestResult struct {
	Index      int    `yaml:"index" json:"index"`
	Status     string `yaml:"status" json:"status"`
	ExitCode   int    `yaml:"exit_code" json:"exit_code"`
	DurationMS int64  `yaml:"duration_ms" json:"duration_ms"`
	Message    string `yaml:"message,omitempty" json:"message,omitempty"`
	OutputPath string `yaml:"output_path,omitempty" json:"output_path,omitempty"`
}

// Report summarizes one implementation's evaluation run
type Report struct {
	ImplementationID string       `yaml:"implementation_id"`
	StartedAt        time.Time    `yaml:"started_at"`
	FinishedAt       time.Time    `yaml:"finished_at"`
	Results          []TestResult `yaml:"results"`
}

// Succeeded returns the number of successful test cases
func (r *Report) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Status == StatusSucceeded.String() {
			n++
		}
	}
	return n
}

// Failed returns the number of failed test cases
func (r *Report) Failed() int {
	return len(r.Results) - r.Succeeded()
}

// SetupError reports a failed setup phase. No tests were attempted.
type SetupError struct {
	Script   string
	ExitCode int
	TimedOut bool
}

func (e *SetupError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("setup script %s timed out and was killed", e.Script)
	}
	return fmt.Sprintf("setup script %s exited with code %d", e.Script, e.ExitCode)
}
