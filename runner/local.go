package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/hwverif/gen-regress/flags"
	"github.com/hwverif/gen-regress/types"
)

// localBackend runs each job in the foreground
type localBackend struct {
	shell      string
	cmdBuilder CmdBuilder
	stdout     io.Writer
	stderr     io.Writer
	log        log.Logger
}

func (b *localBackend) Kind() flags.BackendType {
	return flags.BackendLocal
}

func (b *localBackend) Async() bool {
	return false
}

// Submit runs the job and blocks until its process exits. A job that has
// started is not cancellable: a hung job hangs the regression.
func (b *localBackend) Submit(ctx context.Context, job types.Job) (types.Submission, error) {
	if err := ctx.Err(); err != nil {
		return types.Submission{ExitCode: -1}, fmt.Errorf("%w: %s: %w", ErrSubmission, job.TestName, err)
	}

	b.log.Info("Running job", "test", job.TestName, "seed", job.Seed, "iterations", job.Iterations)
	b.log.Debug("Job command", "test", job.TestName, "cmd", job.Command)

	cmd := b.cmdBuilder(context.WithoutCancel(ctx), b.shell, "-c", job.Command)
	cmd.Stdout = b.stdout
	cmd.Stderr = b.stderr

	start := time.Now()
	err := cmd.Run()
	sub := types.Submission{Duration: time.Since(start)}
	if err == nil {
		b.log.Debug("Job finished", "test", job.TestName, "duration", sub.Duration)
		return sub, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		sub.ExitCode = exitErr.ExitCode()
		return sub, fmt.Errorf("%w: %s exit code %d", ErrJobExit, job.TestName, sub.ExitCode)
	}
	sub.ExitCode = -1
	return sub, fmt.Errorf("%w: %s: %w", ErrSubmission, job.TestName, err)
}
