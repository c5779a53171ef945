package runner

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hwverif/gen-regress/flags"
	"github.com/hwverif/gen-regress/types"
)

// recordingCmdBuilder records the command lines it is asked to run and runs
// script instead.
type recordingCmdBuilder struct {
	script string
	calls  [][]string
}

func (r *recordingCmdBuilder) build(ctx context.Context, name string, arg ...string) *exec.Cmd {
	r.calls = append(r.calls, append([]string{name}, arg...))
	return exec.CommandContext(ctx, "sh", "-c", r.script)
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		name      string
		cfg       BackendConfig
		kind      flags.BackendType
		async     bool
		expectErr error
		errorMsg  string
	}{
		{
			name:  "local",
			cfg:   BackendConfig{Kind: flags.BackendLocal},
			kind:  flags.BackendLocal,
			async: false,
		},
		{
			name:  "batch",
			cfg:   BackendConfig{Kind: flags.BackendBatch, QueueCmd: "bsub -q normal"},
			kind:  flags.BackendBatch,
			async: true,
		},
		{
			name:     "batch without queue command",
			cfg:      BackendConfig{Kind: flags.BackendBatch, QueueCmd: "  "},
			errorMsg: "requires a queue submission command",
		},
		{
			name:      "unknown backend",
			cfg:       BackendConfig{Kind: "lsf"},
			expectErr: ErrUnknownBackend,
			errorMsg:  `unknown backend: "lsf"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Log = log.New()
			backend, err := NewBackend(tt.cfg)
			if tt.errorMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				if tt.expectErr != nil {
					assert.ErrorIs(t, err, tt.expectErr)
				}
				assert.Nil(t, backend)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, backend.Kind())
			assert.Equal(t, tt.async, backend.Async())
		})
	}
}

func TestBackendOutputs(t *testing.T) {
	var out, errOut bytes.Buffer

	stdout, stderr := BackendConfig{Verbose: true, Stdout: &out, Stderr: &errOut}.outputs()
	assert.Same(t, &out, stdout)
	assert.Same(t, &errOut, stderr)

	stdout, stderr = BackendConfig{Stdout: &out, Stderr: &errOut}.outputs()
	assert.Equal(t, io.Discard, stdout, "non-verbose output is discarded")
	assert.Equal(t, io.Discard, stderr)
}

func TestLocalBackendSubmit(t *testing.T) {
	var out bytes.Buffer
	backend, err := NewBackend(BackendConfig{
		Kind:    flags.BackendLocal,
		Verbose: true,
		Stdout:  &out,
		Log:     log.New(),
	})
	require.NoError(t, err)

	job := types.Job{TestName: "t1", Command: "echo generating $((1+2))"}
	sub, err := backend.Submit(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 0, sub.ExitCode)
	assert.Empty(t, sub.JobID)
	assert.Equal(t, "generating 3\n", out.String())
}

func TestLocalBackendDiscardsOutputByDefault(t *testing.T) {
	rec := &recordingCmdBuilder{script: "echo noisy; echo noisier >&2"}
	backend, err := NewBackend(BackendConfig{Kind: flags.BackendLocal, CmdBuilder: rec.build, Log: log.New()})
	require.NoError(t, err)

	_, err = backend.Submit(context.Background(), types.Job{TestName: "t1", Command: "simv +seed=1"})
	require.NoError(t, err)
	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{DefaultShell, "-c", "simv +seed=1"}, rec.calls[0])
}

func TestLocalBackendExitStatus(t *testing.T) {
	backend, err := NewBackend(BackendConfig{Kind: flags.BackendLocal, Log: log.New()})
	require.NoError(t, err)

	sub, err := backend.Submit(context.Background(), types.Job{TestName: "t1", Command: "exit 3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobExit)
	assert.Equal(t, 3, sub.ExitCode)
}

func TestLocalBackendSpawnFailure(t *testing.T) {
	backend, err := NewBackend(BackendConfig{
		Kind:  flags.BackendLocal,
		Shell: "/nonexistent/shell",
		Log:   log.New(),
	})
	require.NoError(t, err)

	sub, err := backend.Submit(context.Background(), types.Job{TestName: "t1", Command: "true"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.Equal(t, -1, sub.ExitCode)
}

func TestLocalBackendCanceledBeforeStart(t *testing.T) {
	rec := &recordingCmdBuilder{script: "true"}
	backend, err := NewBackend(BackendConfig{Kind: flags.BackendLocal, CmdBuilder: rec.build, Log: log.New()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = backend.Submit(ctx, types.Job{TestName: "t1", Command: "true"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmission)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.calls, "no process is started once canceled")
}

func TestBatchBackendSubmit(t *testing.T) {
	rec := &recordingCmdBuilder{script: "echo 'Job <4242> is submitted to queue <normal>.'"}
	backend, err := NewBackend(BackendConfig{
		Kind:       flags.BackendBatch,
		QueueCmd:   "bsub -q normal",
		CmdBuilder: rec.build,
		Log:        log.New(),
	})
	require.NoError(t, err)

	job := types.Job{TestName: "t1", Command: "simv +UVM_TESTNAME=t1 +seed=5"}
	sub, err := backend.Submit(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "4242", sub.JobID)

	require.Len(t, rec.calls, 1)
	assert.Equal(t, []string{DefaultShell, "-c", "bsub -q normal simv +UVM_TESTNAME=t1 +seed=5"}, rec.calls[0])
}

func TestBatchBackendRejected(t *testing.T) {
	rec := &recordingCmdBuilder{script: "echo 'Bad queue name. Job not submitted.' >&2; exit 255"}
	backend, err := NewBackend(BackendConfig{
		Kind:       flags.BackendBatch,
		QueueCmd:   "bsub -q nope",
		CmdBuilder: rec.build,
		Log:        log.New(),
	})
	require.NoError(t, err)

	sub, err := backend.Submit(context.Background(), types.Job{TestName: "t1", Command: "simv"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmission))
	assert.Contains(t, err.Error(), "Bad queue name")
	assert.Equal(t, 255, sub.ExitCode)
	assert.Empty(t, sub.JobID)
}

func TestParseJobID(t *testing.T) {
	tests := []struct {
		output   string
		expected string
	}{
		{"Job <123> is submitted to queue <normal>.\n", "123"},
		{"Submitted batch job 2723147\n", "2723147"},
		{`Your job 77 ("simv") has been submitted`, "77"},
		{"queued\n", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseJobID(tt.output), tt.output)
	}
}
