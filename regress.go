package regress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/hwverif/gen-regress/exitcodes"
	"github.com/hwverif/gen-regress/flags"
	"github.com/hwverif/gen-regress/metrics"
	"github.com/hwverif/gen-regress/runner"
	"github.com/hwverif/gen-regress/service"
	"github.com/hwverif/gen-regress/simulator"
	"github.com/hwverif/gen-regress/testlist"
	"github.com/hwverif/gen-regress/types"
)

// regress implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &regress{}

// regress runs one regression and asks the app to shut down when it is done.
type regress struct {
	config     *Config
	version    string
	sim        *simulator.Simulator
	dispatcher runner.Dispatcher
	service    *service.Service
	result     *types.RunResult
	stdout     io.Writer

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error)) (*regress, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debug("Creating regression with config",
		"testlist", config.Testlist,
		"outDir", config.OutDir,
		"simulator", config.Simulator,
		"backend", config.Backend,
		"steps", config.Steps)

	sim, err := simulator.Load(config.SimulatorYAML, config.Simulator)
	if err != nil {
		return nil, fmt.Errorf("failed to load simulator: %w", err)
	}

	backend, err := runner.NewBackend(runner.BackendConfig{
		Kind:     config.Backend,
		QueueCmd: config.QueueCmd,
		Verbose:  config.Verbose,
		Log:      config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}

	var seeds runner.SeedSource
	if config.Seed >= 0 {
		seeds = runner.FixedSeed(config.Seed)
	}

	var progress runner.ProgressIndicator
	if config.ShowProgress {
		progress = runner.NewConsoleProgressIndicator(config.Log)
	} else {
		progress = runner.NewNoOpProgressIndicator()
	}

	dispatcher, err := runner.NewDispatcher(runner.Config{
		Backend:       backend,
		Builder:       runner.NewBuilder(config.OutDir, sim, seeds),
		OutDir:        config.OutDir,
		TimeoutCycles: config.TimeoutCycles,
		CyclePeriod:   config.CyclePeriod,
		Progress:      progress,
		Log:           config.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	var svc *service.Service
	if config.Metrics.Enabled {
		svc = service.New(service.Config{
			HealthzHost: service.HealthzHost,
			HealthzPort: service.HealthzPort,
			MetricsHost: config.Metrics.ListenAddr,
			MetricsPort: config.Metrics.ListenPort,
			Log:         config.Log,
		})
	}
	config.Log.Info("regress.New: loaded simulator and created dispatcher", "simulator", sim.Name())

	return &regress{
		config:           config,
		version:          version,
		sim:              sim,
		dispatcher:       dispatcher,
		service:          svc,
		stdout:           os.Stdout,
		shutdownCallback: shutdownCallback,
	}, nil
}

// Start runs the regression once, then requests shutdown.
// Start implements the cliapp.Lifecycle interface.
func (r *regress) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if rec := recover(); rec != nil {
			r.config.Log.Error("Runtime error occurred", "error", rec)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	r.running.Store(true)
	if r.service != nil {
		r.service.Start(ctx)
	}
	r.config.Log.Info("Starting regression", "version", r.version, "backend", r.config.Backend)

	if err := r.run(ctx); err != nil {
		return err
	}

	r.config.Log.Info("Regression completed, exiting")
	go func() {
		r.shutdownCallback(nil)
	}()
	return nil
}

// run executes the selected steps and maps the outcome onto the typed errors
// the exit code is derived from.
func (r *regress) run(ctx context.Context) error {
	specs, err := r.loadSpecs()
	if err != nil {
		return NewRuntimeError(err)
	}

	if err := os.MkdirAll(filepath.Join(r.config.OutDir, runner.ArtifactDir), 0o755); err != nil {
		return NewRuntimeError(fmt.Errorf("creating output directory: %w", err))
	}

	if r.config.RunsStep(flags.StepCompile) {
		if err := r.compile(ctx); err != nil {
			return NewRuntimeError(err)
		}
	}
	if !r.config.RunsStep(flags.StepGen) {
		return nil
	}

	result, err := r.dispatcher.Run(ctx, specs)
	if result != nil {
		r.result = result
		r.printResultsTable()
		r.printArtifacts()
		fmt.Fprintln(r.stdout, result.Summary.String())
		metrics.RecordRun(result.RunID, runOutcome(result, err), result.Duration)
	}
	if err != nil {
		r.config.Log.Error("Runtime error running regression", "error", err)
		return NewRuntimeError(err)
	}

	summary := result.Summary
	r.config.Log.Info("Regression finished", "runID", result.RunID, "summary", summary.String())
	if summary.TimedOut {
		return &TimeoutError{Completed: summary.CompletedJobs, Total: summary.TotalJobs, Cycles: summary.ElapsedCycles}
	}
	if summary.FailedSubmissions > 0 || !summary.Done() {
		r.config.Log.Warn("Regression completed with failures, returning exit code 1")
		return NewJobFailureError(summary.String())
	}
	return nil
}

func (r *regress) loadSpecs() ([]types.TestCaseSpec, error) {
	specs, err := testlist.Load(r.config.Testlist)
	if err != nil {
		return nil, err
	}
	specs = testlist.Filter(specs, r.config.Tests)
	specs = testlist.OverrideIterations(specs, r.config.Iterations)
	r.config.Log.Info("Loaded testlist", "path", r.config.Testlist, "tests", len(specs))
	return specs, nil
}

func (r *regress) compile(ctx context.Context) error {
	cmd, err := r.sim.RenderCompile(r.config.OutDir)
	if err != nil {
		return fmt.Errorf("rendering compile command: %w", err)
	}
	if cmd == "" {
		r.config.Log.Debug("Simulator has no compile step", "simulator", r.sim.Name())
		return nil
	}
	return runner.Compile(ctx, runner.CompileConfig{OutDir: r.config.OutDir, Log: r.config.Log}, cmd)
}

// Stop stops the regression service.
// Stop implements the cliapp.Lifecycle interface.
func (r *regress) Stop(ctx context.Context) error {
	r.config.Log.Info("Stopping gen-regress")

	if !r.running.Load() {
		r.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	r.running.Store(false)

	if r.service != nil {
		r.service.Shutdown()
	}

	r.config.Log.Info("gen-regress stopped successfully")
	return nil
}

// Stopped returns true if the regression service is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (r *regress) Stopped() bool {
	return !r.running.Load()
}

func runOutcome(result *types.RunResult, err error) string {
	switch {
	case err != nil:
		return "error"
	case result.Summary.TimedOut:
		return "timeout"
	case result.Summary.FailedSubmissions > 0 || !result.Summary.Done():
		return "fail"
	default:
		return "pass"
	}
}
