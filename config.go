package regress

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/hwverif/gen-regress/flags"
)

// Config holds the application configuration
type Config struct {
	Testlist      string            // Path of the text or YAML testlist
	OutDir        string            // Output directory for logs and generated tests
	Simulator     string            // Tool name in the simulator description
	SimulatorYAML string            // Path of the simulator description
	Backend       flags.BackendType // Execution backend
	QueueCmd      string            // Submission prefix for the batch backend
	Tests         []string          // Tests to run, "all" for every test
	Iterations    int               // Override iterations of every enabled test when > 0
	Seed          int64             // Fixed seed, negative for a time-based seed per job
	Steps         string            // Steps to run
	TimeoutCycles int               // Poll cycles before giving up on batch jobs
	CyclePeriod   time.Duration     // Time between poll cycles
	Verbose       bool              // Route job output to the console
	ShowProgress  bool              // Log a progress line per poll cycle
	Metrics       opmetrics.CLIConfig
	Log           log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	testlist := ctx.String(flags.Testlist.Name)
	if testlist == "" {
		return nil, errors.New("testlist is required")
	}

	backend := flags.BackendType(ctx.String(flags.Backend.Name))
	if !backend.IsValid() {
		return nil, fmt.Errorf("invalid backend: %s. Must be one of: %s, %s",
			backend, flags.BackendLocal, flags.BackendBatch)
	}
	queueCmd := ctx.String(flags.QueueCmd.Name)
	if backend == flags.BackendBatch && queueCmd == "" {
		return nil, fmt.Errorf("--%s is required for the %s backend", flags.QueueCmd.Name, flags.BackendBatch)
	}

	cyclePeriod := ctx.Duration(flags.CyclePeriod.Name)
	if cyclePeriod <= 0 {
		return nil, fmt.Errorf("cycle period must be positive, got %s", cyclePeriod)
	}
	timeoutCycles := ctx.Int(flags.TimeoutCycles.Name)
	if timeoutCycles < 0 {
		return nil, fmt.Errorf("timeout cycles must not be negative, got %d", timeoutCycles)
	}
	iterations := ctx.Int(flags.Iterations.Name)
	if iterations < 0 {
		return nil, fmt.Errorf("iterations must not be negative, got %d", iterations)
	}

	steps := ctx.String(flags.Steps.Name)
	switch steps {
	case flags.StepAll, flags.StepCompile, flags.StepGen:
	default:
		return nil, fmt.Errorf("invalid steps: %s. Must be one of: %s, %s, %s",
			steps, flags.StepAll, flags.StepCompile, flags.StepGen)
	}

	outDir := ctx.String(flags.Output.Name)
	if outDir == "" {
		outDir = DefaultOutDir(time.Now())
	}

	// Resolve the absolute paths
	absTestlist, err := filepath.Abs(testlist)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for testlist '%s': %w", testlist, err)
	}
	absOutDir, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output directory '%s': %w", outDir, err)
	}
	simYAML := ctx.String(flags.SimulatorYAML.Name)
	absSimYAML, err := filepath.Abs(simYAML)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for simulator file '%s': %w", simYAML, err)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	return &Config{
		Testlist:      absTestlist,
		OutDir:        absOutDir,
		Simulator:     ctx.String(flags.Simulator.Name),
		SimulatorYAML: absSimYAML,
		Backend:       backend,
		QueueCmd:      queueCmd,
		Tests:         ctx.StringSlice(flags.Test.Name),
		Iterations:    iterations,
		Seed:          ctx.Int64(flags.Seed.Name),
		Steps:         steps,
		TimeoutCycles: timeoutCycles,
		CyclePeriod:   cyclePeriod,
		Verbose:       ctx.Bool(flags.Verbose.Name),
		ShowProgress:  ctx.Bool(flags.ShowProgress.Name),
		Metrics:       metricsCfg,
		Log:           log,
	}, nil
}

// DefaultOutDir names the output directory after the run date
func DefaultOutDir(now time.Time) string {
	return "out_" + now.Format(time.DateOnly)
}

// RunsStep reports whether step is selected
func (c *Config) RunsStep(step string) bool {
	return c.Steps == "" || c.Steps == flags.StepAll || c.Steps == step
}
