package runner

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/ethereum/go-ethereum/log"

	"github.com/hwverif/gen-regress/metrics"
	"github.com/hwverif/gen-regress/types"
)

const (
	logReadBufferSize = 64 * 1024

	// ansiSlack is extra overlap kept between fragments of a long line so
	// that colour codes around the marker do not push it out of the window.
	ansiSlack = 32
)

// PollerConfig holds configuration for creating a poller
type PollerConfig struct {
	ArtifactDir string
	Marker      string // defaults to DoneMarker
	RunID       string
	Progress    ProgressIndicator
	Log         log.Logger
}

// Poller watches job logs for the done marker and counts generated tests.
// It never talks to the jobs themselves; the filesystem is the only channel.
type Poller struct {
	artifactDir string
	marker      string
	runID       string
	progress    ProgressIndicator
	log         log.Logger

	// done holds the indexes of jobs whose marker has been seen. Completion
	// is sticky so a truncated or rotated log never un-completes a job.
	done map[int]bool
}

// NewPoller creates a poller
func NewPoller(cfg PollerConfig) *Poller {
	if cfg.Marker == "" {
		cfg.Marker = DoneMarker
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	return &Poller{
		artifactDir: cfg.ArtifactDir,
		marker:      cfg.Marker,
		runID:       cfg.RunID,
		progress:    cfg.Progress,
		log:         cfg.Log,
		done:        make(map[int]bool),
	}
}

// Poll inspects jobs once per cyclePeriod until all of them have completed,
// timeoutCycles+1 cycles have run, or ctx is done. Running out of cycles is
// reported through RunSummary.TimedOut rather than an error; the only error
// returned is ctx's.
func (p *Poller) Poll(ctx context.Context, jobs []types.Job, timeoutCycles int, cyclePeriod time.Duration) (types.RunSummary, error) {
	p.done = make(map[int]bool, len(jobs))
	summary := types.RunSummary{
		TotalJobs:              len(jobs),
		TotalArtifactsExpected: ExpectedArtifacts(jobs),
	}

	p.log.Info("Polling for job completion",
		"jobs", len(jobs), "timeoutCycles", timeoutCycles, "cyclePeriod", cyclePeriod)

	for cycle := 0; ; cycle++ {
		summary = p.Cycle(summary, jobs)
		summary.ElapsedCycles = cycle
		p.report(summary)

		if summary.Done() {
			p.log.Info("All jobs completed", "cycles", cycle, "artifacts", summary.ArtifactsObserved)
			return summary, nil
		}
		if cycle >= timeoutCycles {
			summary.TimedOut = true
			p.log.Warn("Timed out waiting for jobs",
				"cycles", cycle,
				"waited", time.Duration(cycle)*cyclePeriod,
				"pending", summary.Pending(),
				"artifacts", summary.ArtifactsObserved,
				"expected", summary.TotalArtifactsExpected)
			return summary, nil
		}

		timer := time.NewTimer(cyclePeriod)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.log.Warn("Polling canceled", "cycles", cycle, "pending", summary.Pending())
			return summary, ctx.Err()
		case <-timer.C:
		}
	}
}

// Cycle runs one inspection pass over jobs and returns the next snapshot.
// prev is not modified.
func (p *Poller) Cycle(prev types.RunSummary, jobs []types.Job) types.RunSummary {
	next := prev
	for _, job := range jobs {
		if p.done[job.Index] {
			continue
		}
		ok, err := LogHasMarker(job.LogPath, p.marker)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.log.Debug("Log not readable yet", "test", job.TestName, "path", job.LogPath, "err", err)
		}
		if ok {
			p.done[job.Index] = true
			p.log.Debug("Job completed", "test", job.TestName, "index", job.Index)
		}
	}
	next.CompletedJobs = len(p.done)

	// A missing or unreadable directory counts nothing this cycle.
	n, err := CountArtifacts(p.artifactDir, ArtifactExt)
	if err != nil {
		p.log.Debug("Artifact directory not readable", "dir", p.artifactDir, "err", err)
	}
	next.ArtifactsObserved = n
	return next
}

// report publishes a cycle snapshot. The debug line is written whether or
// not a progress indicator is attached.
func (p *Poller) report(s types.RunSummary) {
	p.log.Debug("Poll cycle",
		"cycle", s.ElapsedCycles,
		"jobs", fmt.Sprintf("%d/%d", s.CompletedJobs, s.TotalJobs),
		"artifacts", fmt.Sprintf("%d/%d", s.ArtifactsObserved, s.TotalArtifactsExpected))
	p.progress.Report(s)
	metrics.RecordProgress(p.runID, s)
}

// Completed reports whether the job at index has been seen completing
func (p *Poller) Completed(index int) bool {
	return p.done[index]
}

// ExpectedArtifacts sums the iterations requested by jobs
func ExpectedArtifacts(jobs []types.Job) int {
	total := 0
	for _, j := range jobs {
		total += j.Iterations
	}
	return total
}

// LogHasMarker reports whether the log at path contains marker. ANSI colour
// sequences are stripped before matching. Lines of any length are searched;
// a line longer than the read buffer is matched fragment by fragment with
// enough overlap that a marker straddling two fragments is still found.
func LogHasMarker(path, marker string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, logReadBufferSize)
	overlap := len(marker) + ansiSlack
	var carry []byte
	for {
		frag, isPrefix, err := r.ReadLine()
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		chunk := append(carry, frag...)
		if strings.Contains(stripansi.Strip(string(chunk)), marker) {
			return true, nil
		}
		carry = carry[:0]
		if isPrefix {
			carry = append(carry, chunk[max(0, len(chunk)-overlap):]...)
		}
	}
}

// CountArtifacts counts the regular files in dir ending in ext. A missing dir
// holds zero artifacts.
func CountArtifacts(dir, ext string) (int, error) {
	names, err := ListArtifacts(dir, ext)
	return len(names), err
}

// ListArtifacts returns the names of the regular files in dir ending in ext,
// sorted.
func ListArtifacts(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ext {
			continue
		}
		names = append(names, e.Name())
	}
	slices.Sort(names)
	return names, nil
}
