package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/hwverif/gen-regress/flags"
	"github.com/hwverif/gen-regress/types"
)

// Queue acknowledgements the job id can be read from
var jobIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`Job <(\d+)> is submitted`), // LSF bsub
	regexp.MustCompile(`Submitted batch job (\d+)`), // Slurm sbatch
	regexp.MustCompile(`Your job (\d+) \(`),         // SGE qsub
}

// batchBackend hands jobs to a compute queue. After submission the only
// visibility into a job is the log file it writes.
type batchBackend struct {
	queueCmd   string
	shell      string
	cmdBuilder CmdBuilder
	stdout     io.Writer
	stderr     io.Writer
	log        log.Logger
}

func (b *batchBackend) Kind() flags.BackendType {
	return flags.BackendBatch
}

func (b *batchBackend) Async() bool {
	return true
}

// Submit enqueues the job and returns once the queue command has exited.
func (b *batchBackend) Submit(ctx context.Context, job types.Job) (types.Submission, error) {
	line := b.queueCmd + " " + job.Command
	b.log.Debug("Submitting job", "test", job.TestName, "cmd", line)

	var stdout, stderr bytes.Buffer
	cmd := b.cmdBuilder(ctx, b.shell, "-c", line)
	cmd.Stdout = io.MultiWriter(&stdout, b.stdout)
	cmd.Stderr = io.MultiWriter(&stderr, b.stderr)

	start := time.Now()
	err := cmd.Run()
	sub := types.Submission{Duration: time.Since(start)}
	if err != nil {
		sub.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			sub.ExitCode = exitErr.ExitCode()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return sub, fmt.Errorf("%w: %s: %s", ErrSubmission, job.TestName, msg)
	}

	sub.JobID = parseJobID(stdout.String())
	b.log.Info("Submitted job", "test", job.TestName, "seed", job.Seed, "iterations", job.Iterations, "jobID", sub.JobID)
	return sub, nil
}

// parseJobID extracts the queue job id from submission output, or "" when
// the queue's acknowledgement format is not recognized.
func parseJobID(output string) string {
	for _, re := range jobIDPatterns {
		if m := re.FindStringSubmatch(output); m != nil {
			return m[1]
		}
	}
	return ""
}
