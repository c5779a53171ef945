package regress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/term"

	"github.com/hwverif/gen-regress/types"
)

// printResultsTable prints one row per job of the last run.
func (r *regress) printResultsTable() {
	r.config.Log.Info("Printing results...")
	renderResultsTable(r.stdout, r.result, isTerminal(r.stdout))
}

// printArtifacts prints the generated test programs, sorted by name.
func (r *regress) printArtifacts() {
	if len(r.result.Artifacts) == 0 {
		fmt.Fprintln(r.stdout, "No tests generated")
		return
	}
	fmt.Fprintf(r.stdout, "Generated tests (%d):\n", len(r.result.Artifacts))
	for _, name := range r.result.Artifacts {
		fmt.Fprintf(r.stdout, "  %s\n", name)
	}
}

func renderResultsTable(w io.Writer, result *types.RunResult, color bool) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Regression Results: %s backend (%s)", result.Backend, formatDuration(result.Duration)))

	t.AppendHeader(table.Row{
		"#", "Test", "Seed", "Iterations", "Job ID", "Duration", "Status", "Error",
	})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Test", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Seed", Align: text.AlignRight},
		{Name: "Iterations", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for _, jr := range result.Jobs {
		jobID := jr.JobID
		if jobID == "" {
			jobID = "-"
		}
		t.AppendRow(table.Row{
			jr.Job.Index,
			jr.Job.TestName,
			jr.Job.Seed,
			jr.Job.Iterations,
			jobID,
			formatDuration(jr.Duration),
			getStatusString(jr.Status),
			firstLine(jr.Error),
		})
	}

	s := result.Summary
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d/%d completed", s.CompletedJobs, s.TotalJobs),
		"",
		fmt.Sprintf("%d/%d", s.ArtifactsObserved, s.TotalArtifactsExpected),
		"",
		formatDuration(result.Duration),
		getSummaryString(s),
		"",
	})

	switch {
	case !color:
		t.SetStyle(table.StyleLight)
	case s.TimedOut:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	case s.Done() && s.FailedSubmissions == 0:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	t.Render()
}

// getStatusString returns a short marker for a job status
func getStatusString(status types.JobStatus) string {
	switch status {
	case types.JobStatusCompleted:
		return "✓ done"
	case types.JobStatusSubmitted:
		return "… running"
	case types.JobStatusFailed:
		return "✗ fail"
	default:
		return "- pending"
	}
}

func getSummaryString(s types.RunSummary) string {
	switch {
	case s.TimedOut:
		return "⏱ timeout"
	case s.Done() && s.FailedSubmissions == 0:
		return "✓ pass"
	default:
		return "✗ fail"
	}
}

// firstLine keeps table cells to one line; queue errors can be long.
func firstLine(err error) string {
	if err == nil {
		return ""
	}
	msg, _, _ := strings.Cut(err.Error(), "\n")
	return msg
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
