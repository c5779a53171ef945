package runner

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/hwverif/gen-regress/types"
)

// ProgressIndicator interface for UI updates
type ProgressIndicator interface {
	StartRun(runID string, totalJobs int)
	JobSubmitted(job types.Job, sub types.Submission)
	JobFailed(job types.Job, err error)
	Report(summary types.RunSummary)
	CompleteRun(summary types.RunSummary)
}

// noOpProgressIndicator provides a no-op implementation of ProgressIndicator
type noOpProgressIndicator struct{}

// NewNoOpProgressIndicator creates a progress indicator that does nothing
func NewNoOpProgressIndicator() ProgressIndicator {
	return &noOpProgressIndicator{}
}

func (n *noOpProgressIndicator) StartRun(runID string, totalJobs int)             {}
func (n *noOpProgressIndicator) JobSubmitted(job types.Job, sub types.Submission) {}
func (n *noOpProgressIndicator) JobFailed(job types.Job, err error)               {}
func (n *noOpProgressIndicator) Report(summary types.RunSummary)                  {}
func (n *noOpProgressIndicator) CompleteRun(summary types.RunSummary)             {}

// consoleProgressIndicator logs one line per event. The dispatcher drives it
// from a single goroutine, so it needs no locking.
type consoleProgressIndicator struct {
	logger    log.Logger
	runID     string
	totalJobs int
	submitted int
	failed    int
	startTime time.Time
}

// NewConsoleProgressIndicator creates a progress indicator that shows updates in the console
func NewConsoleProgressIndicator(logger log.Logger) ProgressIndicator {
	return &consoleProgressIndicator{logger: logger}
}

func (c *consoleProgressIndicator) StartRun(runID string, totalJobs int) {
	c.runID = runID
	c.totalJobs = totalJobs
	c.submitted = 0
	c.failed = 0
	c.startTime = time.Now()

	c.logger.Info("Starting regression", "runID", runID, "jobs", totalJobs)
}

func (c *consoleProgressIndicator) JobSubmitted(job types.Job, sub types.Submission) {
	c.submitted++
	c.logger.Debug("Job submitted", "test", job.TestName, "jobID", sub.JobID,
		"submitted", c.submitted, "total", c.totalJobs)
}

func (c *consoleProgressIndicator) JobFailed(job types.Job, err error) {
	c.failed++
	c.logger.Warn("Job failed", "test", job.TestName, "failed", c.failed, "err", err)
}

func (c *consoleProgressIndicator) Report(s types.RunSummary) {
	c.logger.Info("Progress update",
		"cycle", s.ElapsedCycles,
		"jobs", fmt.Sprintf("%d/%d", s.CompletedJobs, s.TotalJobs),
		"artifacts", fmt.Sprintf("%d/%d", s.ArtifactsObserved, s.TotalArtifactsExpected),
		"percent", fmt.Sprintf("%.1f%%", percent(s.ArtifactsObserved, s.TotalArtifactsExpected)),
		"elapsed", time.Since(c.startTime).Truncate(time.Second))
}

func (c *consoleProgressIndicator) CompleteRun(s types.RunSummary) {
	duration := time.Since(c.startTime).Truncate(time.Second)
	c.logger.Info("Completed regression", "runID", c.runID, "summary", s.String(), "duration", duration)
}

func percent(n, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(n) * 100.0 / float64(total)
}
