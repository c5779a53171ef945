package types

import (
	"fmt"
	"time"
)

// RunSummary is a snapshot of regression progress. Each poll cycle produces a
// new value; nothing holds a shared mutable copy.
type RunSummary struct {
	TotalJobs              int
	CompletedJobs          int
	TotalArtifactsExpected int
	ArtifactsObserved      int
	ElapsedCycles          int
	FailedSubmissions      int
	TimedOut               bool
}

// Done reports whether every job has been seen completing.
func (s RunSummary) Done() bool {
	return s.CompletedJobs == s.TotalJobs
}

// Pending returns the number of jobs that have not completed.
func (s RunSummary) Pending() int {
	return s.TotalJobs - s.CompletedJobs
}

// String implements the Stringer interface for RunSummary
func (s RunSummary) String() string {
	str := fmt.Sprintf("jobs %d/%d completed, artifacts %d/%d", s.CompletedJobs, s.TotalJobs,
		s.ArtifactsObserved, s.TotalArtifactsExpected)
	if s.FailedSubmissions > 0 {
		str += fmt.Sprintf(", %d submission(s) failed", s.FailedSubmissions)
	}
	if s.TimedOut {
		str += fmt.Sprintf(", timed out after %d cycles", s.ElapsedCycles)
	}
	return str
}

// RunResult captures the complete regression run
type RunResult struct {
	RunID     string
	Backend   string
	Jobs      []*JobResult
	Summary   RunSummary
	Artifacts []string // artifact file names, sorted
	Duration  time.Duration
}

// Failed returns the results of jobs that failed to submit or run.
func (r *RunResult) Failed() []*JobResult {
	var failed []*JobResult
	for _, j := range r.Jobs {
		if j.Status == JobStatusFailed {
			failed = append(failed, j)
		}
	}
	return failed
}
