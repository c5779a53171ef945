package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "GEN_REGRESS"

// BackendType selects how jobs are executed
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendBatch BackendType = "batch"
)

// IsValid reports whether b names a known backend
func (b BackendType) IsValid() bool {
	switch b {
	case BackendLocal, BackendBatch:
		return true
	}
	return false
}

// String implements the Stringer interface for BackendType
func (b BackendType) String() string {
	return string(b)
}

// ValidBackendTypes returns all known backends
func ValidBackendTypes() []BackendType {
	return []BackendType{BackendLocal, BackendBatch}
}

func validateBackend(v string) error {
	if !BackendType(v).IsValid() {
		return fmt.Errorf("backend must be one of %s, %s; got %q", BackendLocal, BackendBatch, v)
	}
	return nil
}

// Step names accepted by --steps
const (
	StepAll     = "all"
	StepCompile = "compile"
	StepGen     = "gen"
)

var (
	Testlist = &cli.StringFlag{
		Name:     "testlist",
		Value:    "",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "TESTLIST"),
		Usage:    "Path to the regression testlist (line format, or YAML when ending in .yaml/.yml)",
	}
	Output = &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT"),
		Usage:   "Output directory for logs and generated tests. Defaults to out_<date>",
	}
	Simulator = &cli.StringFlag{
		Name:    "simulator",
		Value:   "vcs",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SIMULATOR"),
		Usage:   "Simulator tool to use, as named in the simulator description file",
	}
	SimulatorYAML = &cli.StringFlag{
		Name:    "simulator-yaml",
		Value:   "yaml/simulator.yaml",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SIMULATOR_YAML"),
		Usage:   "Path to the simulator description file",
	}
	Backend = &cli.StringFlag{
		Name:    "backend",
		Value:   string(BackendLocal),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "BACKEND"),
		Usage:   fmt.Sprintf("Execution backend: '%s' runs jobs one at a time, '%s' submits them to a compute queue", BackendLocal, BackendBatch),
		Action: func(ctx *cli.Context, v string) error {
			return validateBackend(v)
		},
	}
	QueueCmd = &cli.StringFlag{
		Name:    "queue-cmd",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "QUEUE_CMD"),
		Usage:   "Queue submission command prefix for the batch backend (eg. 'bsub -q normal')",
	}
	Test = &cli.StringSliceFlag{
		Name:    "test",
		Value:   cli.NewStringSlice("all"),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TEST"),
		Usage:   "Tests to run from the testlist, 'all' runs every test",
	}
	Iterations = &cli.IntFlag{
		Name:    "iterations",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ITERATIONS"),
		Usage:   "Override the iteration count of every enabled test. 0 keeps the testlist values",
	}
	Seed = &cli.Int64Flag{
		Name:    "seed",
		Value:   -1,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SEED"),
		Usage:   "Fixed seed for every job. Negative values sample a time based seed per job",
	}
	Steps = &cli.StringFlag{
		Name:    "steps",
		Value:   StepAll,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "STEPS"),
		Usage:   fmt.Sprintf("Steps to run: '%s', '%s' or '%s'", StepAll, StepCompile, StepGen),
		Action: func(ctx *cli.Context, v string) error {
			switch v {
			case StepAll, StepCompile, StepGen:
				return nil
			}
			return fmt.Errorf("invalid steps: %s", v)
		},
	}
	TimeoutCycles = &cli.IntFlag{
		Name:    "timeout-cycles",
		Value:   60,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "TIMEOUT_CYCLES"),
		Usage:   "Number of poll cycles to wait for batch jobs before giving up",
	}
	CyclePeriod = &cli.DurationFlag{
		Name:    "cycle-period",
		Value:   10 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CYCLE_PERIOD"),
		Usage:   "Time between poll cycles (e.g. '10s', '1m')",
	}
	Verbose = &cli.BoolFlag{
		Name:    "verbose",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VERBOSE"),
		Usage:   "Show job stdout/stderr on the console instead of discarding it",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "progress",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS"),
		Usage:   "Log a progress line every poll cycle",
	}
)

var requiredFlags = []cli.Flag{
	Testlist,
}

var optionalFlags = []cli.Flag{
	Output,
	Simulator,
	SimulatorYAML,
	Backend,
	QueueCmd,
	Test,
	Iterations,
	Seed,
	Steps,
	TimeoutCycles,
	CyclePeriod,
	Verbose,
	ShowProgress,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
