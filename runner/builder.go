package runner

import (
	"path/filepath"
	"time"

	"github.com/hwverif/gen-regress/simulator"
	"github.com/hwverif/gen-regress/types"
)

// SeedSource returns the seed for the next job
type SeedSource func() int64

// TimeSeed samples wall-clock seconds. Jobs built within the same second get
// the same seed; this matches existing regression baselines and is kept on
// purpose. Use FixedSeed for reproducible runs.
func TimeSeed() int64 {
	return time.Now().Unix()
}

// FixedSeed returns a SeedSource that always yields seed
func FixedSeed(seed int64) SeedSource {
	return func() int64 { return seed }
}

// CommandRenderer renders the simulator command line for a job
type CommandRenderer interface {
	RenderSim(f simulator.SimFields) string
}

// Builder turns testlist entries into jobs. Building is pure data assembly
// and never fails.
type Builder struct {
	outDir string
	sim    CommandRenderer
	seeds  SeedSource
}

// NewBuilder creates a job builder writing below outDir. A nil seeds uses
// TimeSeed.
func NewBuilder(outDir string, sim CommandRenderer, seeds SeedSource) *Builder {
	if seeds == nil {
		seeds = TimeSeed
	}
	return &Builder{
		outDir: outDir,
		sim:    sim,
		seeds:  seeds,
	}
}

// Build creates the job for spec. index is the job's position in submission
// order.
func (b *Builder) Build(spec types.TestCaseSpec, index int) types.Job {
	job := types.Job{
		Index:          index,
		TestName:       spec.Name,
		Seed:           b.seeds(),
		LogPath:        LogPath(b.outDir, spec.Name),
		ArtifactPrefix: ArtifactPrefix(b.outDir, spec.Name),
		Iterations:     spec.Iterations,
		Options:        spec.Options,
	}
	if b.sim != nil {
		job.Command = b.sim.RenderSim(simulator.SimFields{
			Test:           job.TestName,
			Seed:           job.Seed,
			Iterations:     job.Iterations,
			Options:        job.Options,
			LogPath:        job.LogPath,
			ArtifactPrefix: job.ArtifactPrefix,
			OutDir:         b.outDir,
		})
	}
	return job
}

// LogPath returns the log file of test below outDir
func LogPath(outDir, test string) string {
	return filepath.Join(outDir, LogPrefix+test+LogExt)
}

// ArtifactPrefix returns the path prefix generated tests of test are written to
func ArtifactPrefix(outDir, test string) string {
	return filepath.Join(outDir, ArtifactDir, test)
}
