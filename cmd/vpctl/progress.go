package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"

	"vision-platform-client/internal/core/services"
)

// progress renders orchestrator events as one bar per workflow.
type progress struct {
	out      io.Writer
	workflow string
	bar      *progressbar.ProgressBar
}

func newProgress() *progress {
	return &progress{out: os.Stderr}
}

func (p *progress) report(ev services.ProgressEvent) {
	if p.bar == nil || p.workflow != ev.Workflow {
		p.finish()
		p.workflow = ev.Workflow
		p.bar = progressbar.NewOptions(ev.Total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(ev.Workflow),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	_ = p.bar.Set(ev.Done)
}

func (p *progress) finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
		p.bar = nil
	}
}

// printFailures writes one row per failed item.
func printFailures(w io.Writer, failures []services.ItemFailure) {
	if len(failures) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tSTAGE\tORPHANED\tERROR")
	for _, f := range failures {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%v\n", f.Index, f.Name, f.Stage, f.Orphaned, f.Err)
	}
	tw.Flush()
}

func printDatasetResult(w io.Writer, res *services.DatasetResult) {
	fmt.Fprintf(w, "project %s (%s): %d uploaded, %d failed\n",
		res.Project.Name, res.Project.ID, len(res.Succeeded), len(res.Failures))
	printFailures(w, res.Failures)
}
