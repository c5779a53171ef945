package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// ErrCompile marks a compile step that exited non-zero
var ErrCompile = errors.New("compile failed")

// CompileConfig holds configuration for the compile step
type CompileConfig struct {
	OutDir     string
	Shell      string
	CmdBuilder CmdBuilder
	Log        log.Logger
}

// Compile runs the simulator build command once, in the foreground, with its
// combined output written to <outDir>/compile.log. An empty command is a
// no-op.
func Compile(ctx context.Context, cfg CompileConfig, command string) error {
	if command == "" {
		return nil
	}
	if cfg.Shell == "" {
		cfg.Shell = DefaultShell
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = DefaultCmdBuilder
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}

	logPath := filepath.Join(cfg.OutDir, CompileLog)
	f, err := os.Create(logPath)
	if err != nil {
		return fmt.Errorf("creating compile log: %w", err)
	}
	defer f.Close()

	cfg.Log.Info("Compiling simulator", "log", logPath)
	cfg.Log.Debug("Compile command", "cmd", command)

	cmd := cfg.CmdBuilder(ctx, cfg.Shell, "-c", command)
	cmd.Stdout = f
	cmd.Stderr = f

	start := time.Now()
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit code %d, see %s", ErrCompile, exitErr.ExitCode(), logPath)
		}
		return fmt.Errorf("%w: %w", ErrCompile, err)
	}
	cfg.Log.Info("Compile finished", "duration", time.Since(start).Truncate(time.Millisecond))
	return nil
}
