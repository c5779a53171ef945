package runner

import "time"

// Regression layout and protocol constants
const (
	// DoneMarker is written by a generation job once it has finished. It is
	// the only completion signal the poller understands.
	DoneMarker = "TEST GENERATION DONE"

	// ArtifactDir is the output sub-directory holding generated tests
	ArtifactDir = "asm_tests"

	// ArtifactExt is the extension of a generated test program
	ArtifactExt = ".S"

	// Per-job log naming: <out>/sim_<test>.log
	LogPrefix = "sim_"
	LogExt    = ".log"

	// CompileLog holds the output of the compile step
	CompileLog = "compile.log"

	// DefaultShell runs rendered command lines
	DefaultShell = "sh"

	// DefaultCyclePeriod is the time between poll cycles
	DefaultCyclePeriod = 10 * time.Second

	// DefaultTimeoutCycles bounds how long the poller waits for batch jobs
	DefaultTimeoutCycles = 60
)
