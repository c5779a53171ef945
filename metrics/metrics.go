package metrics

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hwverif/gen-regress/types"
)

const (
	MetricsNamespace = "regress"
)

var (
	Debug                bool = true
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	jobsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "jobs_submitted_total",
		Help:      "Count of jobs accepted by an execution backend",
	}, []string{
		"backend",
	})

	submissionErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "submission_errors_total",
		Help:      "Count of jobs an execution backend rejected or failed to run",
	}, []string{
		"backend",
	})

	jobsCompleted = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "jobs_completed",
		Help:      "Jobs whose log contains the completion marker",
	}, []string{
		"run_id",
	})

	artifactsObserved = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "artifacts_observed",
		Help:      "Generated artifacts found in the output directory",
	}, []string{
		"run_id",
	})

	pollCyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "poll_cycles_total",
		Help:      "Count of completion poll cycles",
	})

	regressionDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "regression_duration_seconds",
		Help:      "Duration of a regression run",
	}, []string{
		"run_id",
		"result",
	})
)

// errToLabel reduces an error message to letters joined by underscores
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	words := strings.Fields(nonAlphanumericRegex.ReplaceAllString(err.Error(), ""))
	return strings.Join(words, "_")
}

func RecordError(error string) {
	if Debug {
		log.Debug("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails counts err under label, suffixed with a cleaned copy
// of the error message
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordSubmission(backend string) {
	jobsSubmittedTotal.WithLabelValues(backend).Inc()
}

func RecordSubmissionError(backend string) {
	if Debug {
		log.Debug("metric inc",
			"m", "submission_errors_total",
			"backend", backend,
		)
	}
	submissionErrorsTotal.WithLabelValues(backend).Inc()
}

// RecordProgress publishes one poll cycle snapshot
func RecordProgress(runID string, summary types.RunSummary) {
	pollCyclesTotal.Inc()
	jobsCompleted.WithLabelValues(runID).Set(float64(summary.CompletedJobs))
	artifactsObserved.WithLabelValues(runID).Set(float64(summary.ArtifactsObserved))
}

func RecordRun(runID string, result string, duration time.Duration) {
	regressionDuration.WithLabelValues(runID, result).Set(duration.Seconds())
}
