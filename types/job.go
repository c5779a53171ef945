// Package types contains shared types used across the regression dispatcher
package types

import (
	"fmt"
	"time"
)

// TestCaseSpec is one entry of a testlist.
type TestCaseSpec struct {
	Name        string
	Iterations  int
	Options     string
	Description string
	Line        int // 1-based source line, 0 when not read from a text testlist
}

// Buildable reports whether a job should be built for the spec.
func (s TestCaseSpec) Buildable() bool {
	return s.Iterations > 0
}

// Job is one fully parameterized unit of work handed to an execution backend.
type Job struct {
	Index          int
	TestName       string
	Seed           int64
	LogPath        string
	ArtifactPrefix string
	Iterations     int
	Options        string
	Command        string // rendered simulator command line
}

// String implements the Stringer interface for Job
func (j Job) String() string {
	return fmt.Sprintf("%s(seed=%d, iterations=%d)", j.TestName, j.Seed, j.Iterations)
}

// JobStatus represents the lifecycle state of a job as seen by the dispatcher
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusSubmitted JobStatus = "submitted"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Submission is what a backend reports back after accepting a job.
type Submission struct {
	JobID    string // queue job id, empty when unknown or for local runs
	ExitCode int
	Duration time.Duration
}

// JobResult captures the outcome of a single job
type JobResult struct {
	Job      Job
	Status   JobStatus
	JobID    string
	ExitCode int
	Error    error
	Duration time.Duration
}
