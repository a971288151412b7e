package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/config"
	"github.com/rshade/batchrun/internal/tui"
)

// Output formats.
const (
	formatTable = "table"
	formatJSON  = "json"
	formatPlain = "plain"
)

// tabPadding is the column padding used by tabwriter tables.
const tabPadding = 2

func isValidOutputFormat(format string) bool {
	switch format {
	case formatTable, formatJSON, formatPlain:
		return true
	default:
		return false
	}
}

// runResponse is the JSON document printed by run --output json.
type runResponse struct {
	Plan           string   `json:"plan"`
	RunID          string   `json:"runId"`
	BatchSize      int      `json:"batchSize"`
	TotalTasks     int      `json:"totalTasks"`
	CompletedTasks int      `json:"completedTasks"`
	Windows        int      `json:"windows"`
	Progress       float64  `json:"progress"`
	ElapsedMs      int64    `json:"elapsedMs"`
	Results        []string `json:"results"`
}

// renderRun prints a successful run in the requested format.
func renderRun(cmd *cobra.Command, format string, summary tui.Summary, results []string) error {
	w := cmd.OutOrStdout()
	switch format {
	case formatJSON:
		return renderRunJSON(w, summary, results)
	case formatPlain:
		return renderRunPlain(w, results)
	default:
		if err := renderRunTable(w, results); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.ErrOrStderr(), tui.RenderSummary(summary, config.GetOutputPrecision()))
		return err
	}
}

// renderRunJSON renders the run and its results as indented JSON.
func renderRunJSON(w io.Writer, summary tui.Summary, results []string) error {
	if results == nil {
		results = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(runResponse{
		Plan:           summary.Name,
		RunID:          summary.RunID,
		BatchSize:      summary.BatchSize,
		TotalTasks:     summary.TotalTasks,
		CompletedTasks: summary.CompletedTasks,
		Windows:        summary.Windows,
		Progress:       summary.Progress,
		ElapsedMs:      summary.Elapsed.Milliseconds(),
		Results:        results,
	})
}

// renderRunPlain prints one result per line.
func renderRunPlain(w io.Writer, results []string) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r); err != nil {
			return err
		}
	}
	return nil
}

// renderRunTable prints results with their position in the result collection.
func renderRunTable(w io.Writer, results []string) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "No results")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "#\tResult")
	fmt.Fprintln(tw, "-\t------")
	for i, r := range results {
		fmt.Fprintf(tw, "%d\t%s\n", i+1, r)
	}
	return tw.Flush()
}
