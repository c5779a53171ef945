package runner

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/ethereum-optimism/optimism/op-service/testlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwverif/gen-regress/types"
)

func TestConsoleProgressIndicator(t *testing.T) {
	logger, logs := testlog.CaptureLogger(t, slog.LevelDebug)
	progress := NewConsoleProgressIndicator(logger)

	job := types.Job{TestName: "riscv_rand_instr_test", Iterations: 2}
	progress.StartRun("run-1", 2)
	progress.JobSubmitted(job, types.Submission{JobID: "77"})
	progress.JobFailed(types.Job{TestName: "riscv_jump_stress_test"}, errors.New("queue closed"))
	progress.Report(types.RunSummary{TotalJobs: 2, CompletedJobs: 1, TotalArtifactsExpected: 4, ArtifactsObserved: 1, ElapsedCycles: 3})
	progress.CompleteRun(types.RunSummary{TotalJobs: 2, CompletedJobs: 2, TotalArtifactsExpected: 4, ArtifactsObserved: 4})

	start := logs.FindLog(testlog.NewMessageFilter("Starting regression"))
	require.NotNil(t, start)
	assert.Equal(t, "run-1", start.AttrValue("runID"))

	submitted := logs.FindLog(testlog.NewMessageFilter("Job submitted"))
	require.NotNil(t, submitted)
	assert.Equal(t, "77", submitted.AttrValue("jobID"))

	failed := logs.FindLog(testlog.NewMessageFilter("Job failed"))
	require.NotNil(t, failed)
	assert.Equal(t, "riscv_jump_stress_test", failed.AttrValue("test"))

	update := logs.FindLog(testlog.NewMessageFilter("Progress update"))
	require.NotNil(t, update)
	assert.Equal(t, "1/2", update.AttrValue("jobs"))
	assert.Equal(t, "1/4", update.AttrValue("artifacts"))
	assert.Equal(t, "25.0%", update.AttrValue("percent"))

	require.NotNil(t, logs.FindLog(testlog.NewMessageFilter("Completed regression")))
}

func TestNoOpProgressIndicator(t *testing.T) {
	progress := NewNoOpProgressIndicator()
	assert.NotPanics(t, func() {
		progress.StartRun("run-1", 1)
		progress.JobSubmitted(types.Job{}, types.Submission{})
		progress.JobFailed(types.Job{}, errors.New("x"))
		progress.Report(types.RunSummary{})
		progress.CompleteRun(types.RunSummary{})
	})
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0.0, percent(3, 0))
	assert.Equal(t, 50.0, percent(1, 2))
	assert.Equal(t, 100.0, percent(4, 4))
}
