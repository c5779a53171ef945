package runner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/hwverif/gen-regress/metrics"
	"github.com/hwverif/gen-regress/testlist"
	"github.com/hwverif/gen-regress/types"
)

// ErrNoMarker marks a local job that exited without logging the done marker
var ErrNoMarker = errors.New("job exited without done marker")

// Dispatcher runs one regression
type Dispatcher interface {
	Run(ctx context.Context, specs []types.TestCaseSpec) (*types.RunResult, error)
}

// Config holds configuration for creating a new dispatcher
type Config struct {
	Backend       Backend
	Builder       *Builder
	OutDir        string
	TimeoutCycles int
	CyclePeriod   time.Duration
	Marker        string // defaults to DoneMarker
	RunID         string // generated when empty
	Progress      ProgressIndicator
	Log           log.Logger
}

type dispatcher struct {
	backend       Backend
	builder       *Builder
	artifactDir   string
	timeoutCycles int
	cyclePeriod   time.Duration
	marker        string
	runID         string
	progress      ProgressIndicator
	log           log.Logger
	tracer        trace.Tracer
}

// NewDispatcher creates a new dispatcher instance
func NewDispatcher(cfg Config) (Dispatcher, error) {
	if cfg.Backend == nil {
		return nil, fmt.Errorf("backend is required")
	}
	if cfg.Builder == nil {
		return nil, fmt.Errorf("job builder is required")
	}
	if cfg.OutDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.TimeoutCycles < 0 {
		return nil, fmt.Errorf("timeout cycles must not be negative, got %d", cfg.TimeoutCycles)
	}
	if cfg.CyclePeriod <= 0 {
		cfg.CyclePeriod = DefaultCyclePeriod
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.Progress == nil {
		cfg.Progress = NewNoOpProgressIndicator()
	}

	return &dispatcher{
		backend:       cfg.Backend,
		builder:       cfg.Builder,
		artifactDir:   filepath.Join(cfg.OutDir, ArtifactDir),
		timeoutCycles: cfg.TimeoutCycles,
		cyclePeriod:   cfg.CyclePeriod,
		marker:        cfg.Marker,
		runID:         cfg.RunID,
		progress:      cfg.Progress,
		log:           cfg.Log,
		tracer:        otel.Tracer("regression dispatcher"),
	}, nil
}

// Run builds and submits one job per buildable spec, in order, then waits for
// them. A failed submission is recorded on its job and never aborts the run.
// The returned result is non-nil even when err is, so partial progress can
// still be reported.
func (d *dispatcher) Run(ctx context.Context, specs []types.TestCaseSpec) (*types.RunResult, error) {
	runID := d.runID
	if runID == "" {
		runID = uuid.New().String()
	}

	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("regression %s", runID))
	defer span.End()

	start := time.Now()
	backend := d.backend.Kind().String()
	result := &types.RunResult{
		RunID:   runID,
		Backend: backend,
	}

	buildable := slices.Collect(testlist.Buildable(slices.Values(specs)))
	d.log.Debug("Dispatching regression", "runID", runID, "backend", backend,
		"specs", len(specs), "buildable", len(buildable))
	d.progress.StartRun(runID, len(buildable))

	accepted, submitErr := d.submitAll(ctx, buildable, result)

	poller := NewPoller(PollerConfig{
		ArtifactDir: d.artifactDir,
		Marker:      d.marker,
		RunID:       runID,
		Progress:    d.progress,
		Log:         d.log,
	})

	var summary types.RunSummary
	var pollErr error
	inspectedExited := false
	switch {
	case submitErr != nil:
		summary = types.RunSummary{
			TotalJobs:              len(accepted),
			TotalArtifactsExpected: ExpectedArtifacts(accepted),
		}
	case d.backend.Async():
		summary, pollErr = d.poll(ctx, poller, accepted)
	default:
		// Local jobs have all exited by now; a single pass collects them.
		summary = poller.Cycle(types.RunSummary{
			TotalJobs:              len(accepted),
			TotalArtifactsExpected: ExpectedArtifacts(accepted),
		}, accepted)
		poller.report(summary)
		inspectedExited = true
	}
	summary.FailedSubmissions = len(result.Jobs) - len(accepted)

	for _, jr := range result.Jobs {
		switch {
		case jr.Status == types.JobStatusFailed && !isJobExit(jr.Error):
			// never ran
		case poller.Completed(jr.Job.Index):
			jr.Status = types.JobStatusCompleted
		case inspectedExited && jr.Status == types.JobStatusSubmitted:
			jr.Status = types.JobStatusFailed
			jr.Error = fmt.Errorf("%w in %s", ErrNoMarker, jr.Job.LogPath)
			d.progress.JobFailed(jr.Job, jr.Error)
		}
	}

	artifacts, err := ListArtifacts(d.artifactDir, ArtifactExt)
	if err != nil {
		d.log.Warn("Failed to list artifacts", "dir", d.artifactDir, "err", err)
	}
	result.Artifacts = artifacts
	result.Summary = summary
	result.Duration = time.Since(start)
	d.progress.CompleteRun(summary)

	if err := errors.Join(submitErr, pollErr); err != nil {
		span.RecordError(err)
		return result, err
	}
	return result, nil
}

// submitAll builds and submits jobs in testlist order. It returns the jobs the
// backend accepted. Only cancellation of ctx stops it early.
func (d *dispatcher) submitAll(ctx context.Context, specs []types.TestCaseSpec, result *types.RunResult) ([]types.Job, error) {
	ctx, span := d.tracer.Start(ctx, fmt.Sprintf("submit %d jobs", len(specs)))
	defer span.End()

	backend := d.backend.Kind().String()
	accepted := make([]types.Job, 0, len(specs))
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			d.log.Warn("Submission interrupted", "submitted", i, "remaining", len(specs)-i)
			return accepted, fmt.Errorf("submitting jobs: %w", err)
		}

		job := d.builder.Build(spec, i)
		jr := &types.JobResult{Job: job, Status: types.JobStatusPending}
		result.Jobs = append(result.Jobs, jr)

		sub, err := d.backend.Submit(ctx, job)
		jr.JobID = sub.JobID
		jr.ExitCode = sub.ExitCode
		jr.Duration = sub.Duration
		if err != nil {
			jr.Error = err
			jr.Status = types.JobStatusFailed
			d.progress.JobFailed(job, err)
			if !isJobExit(err) {
				metrics.RecordSubmissionError(backend)
				continue
			}
			// The process ran; whatever it wrote still counts.
			metrics.RecordSubmission(backend)
			accepted = append(accepted, job)
			continue
		}

		jr.Status = types.JobStatusSubmitted
		metrics.RecordSubmission(backend)
		d.progress.JobSubmitted(job, sub)
		accepted = append(accepted, job)
	}
	return accepted, nil
}

func (d *dispatcher) poll(ctx context.Context, poller *Poller, jobs []types.Job) (types.RunSummary, error) {
	ctx, span := d.tracer.Start(ctx, "poll")
	defer span.End()

	summary, err := poller.Poll(ctx, jobs, d.timeoutCycles, d.cyclePeriod)
	if err != nil {
		return summary, fmt.Errorf("polling jobs: %w", err)
	}
	return summary, nil
}

func isJobExit(err error) bool {
	return errors.Is(err, ErrJobExit)
}
