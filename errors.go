package regress

import (
	"errors"
	"fmt"
)

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include configuration errors, file not found, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// JobFailureError reports jobs that failed to submit or exited non-zero (exit code 1)
type JobFailureError struct {
	Message string
}

func (e *JobFailureError) Error() string {
	return fmt.Sprintf("job failure: %s", e.Message)
}

// NewJobFailureError creates a new JobFailureError
func NewJobFailureError(message string) *JobFailureError {
	return &JobFailureError{Message: message}
}

// IsJobFailureError checks if the error is or wraps a JobFailureError
func IsJobFailureError(err error) bool {
	var jobErr *JobFailureError
	return err != nil && errors.As(err, &jobErr)
}

// TimeoutError reports that polling gave up before every job completed. The
// run is not considered crashed: partial results have already been reported.
type TimeoutError struct {
	Completed int
	Total     int
	Cycles    int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %d poll cycles: %d/%d jobs completed", e.Cycles, e.Completed, e.Total)
}

// IsTimeoutError checks if the error is or wraps a TimeoutError
func IsTimeoutError(err error) bool {
	var timeoutErr *TimeoutError
	return err != nil && errors.As(err, &timeoutErr)
}
