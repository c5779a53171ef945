package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/hwverif/gen-regress/flags"
	"github.com/hwverif/gen-regress/types"
)

var (
	// ErrUnknownBackend is returned by NewBackend for an unrecognized backend
	ErrUnknownBackend = errors.New("unknown backend")

	// ErrSubmission marks a job that could not be started or was rejected by
	// the queue
	ErrSubmission = errors.New("job submission failed")

	// ErrJobExit marks a local job whose process exited non-zero
	ErrJobExit = errors.New("job exited with non-zero status")
)

var _ Backend = (*localBackend)(nil)
var _ Backend = (*batchBackend)(nil)

// Backend executes jobs. Implementations share one Submit contract so the
// dispatcher never needs to know which backend it is talking to.
type Backend interface {
	// Kind returns the backend type
	Kind() flags.BackendType

	// Async reports whether Submit returns before the job has finished. Jobs
	// submitted to an async backend must be polled for completion.
	Async() bool

	// Submit starts job. A local backend blocks until the process exits; a
	// batch backend returns once the queue has accepted the job.
	Submit(ctx context.Context, job types.Job) (types.Submission, error)
}

// CmdBuilder creates the process used to run a command line
type CmdBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// DefaultCmdBuilder starts processes with os/exec
func DefaultCmdBuilder(ctx context.Context, name string, arg ...string) *exec.Cmd {
	return exec.CommandContext(ctx, name, arg...)
}

// BackendConfig holds configuration for creating a backend
type BackendConfig struct {
	Kind       flags.BackendType
	QueueCmd   string // submission prefix, batch only (eg. "bsub -q normal")
	Verbose    bool   // route job stdout/stderr to the console
	Shell      string
	CmdBuilder CmdBuilder
	Stdout     io.Writer // console sinks used when Verbose, default os.Stdout/os.Stderr
	Stderr     io.Writer
	Log        log.Logger
}

// NewBackend creates the backend selected by cfg.Kind
func NewBackend(cfg BackendConfig) (Backend, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = DefaultCmdBuilder
	}
	stdout, stderr := cfg.outputs()

	switch cfg.Kind {
	case flags.BackendLocal:
		return &localBackend{
			shell:      cfg.Shell,
			cmdBuilder: cfg.CmdBuilder,
			stdout:     stdout,
			stderr:     stderr,
			log:        cfg.Log,
		}, nil
	case flags.BackendBatch:
		queueCmd := strings.TrimSpace(cfg.QueueCmd)
		if queueCmd == "" {
			return nil, fmt.Errorf("%s backend requires a queue submission command", flags.BackendBatch)
		}
		return &batchBackend{
			queueCmd:   queueCmd,
			shell:      cfg.Shell,
			cmdBuilder: cfg.CmdBuilder,
			stdout:     stdout,
			stderr:     stderr,
			log:        cfg.Log,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Kind)
	}
}

// outputs returns where job stdout/stderr go: the console when verbose,
// nowhere otherwise.
func (cfg BackendConfig) outputs() (io.Writer, io.Writer) {
	if !cfg.Verbose {
		return io.Discard, io.Discard
	}
	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return stdout, stderr
}
