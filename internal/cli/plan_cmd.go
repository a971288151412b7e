package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/batchrun/internal/engine/batch"
	"github.com/rshade/batchrun/internal/plan"
	"github.com/rshade/batchrun/internal/tui"
)

// NewPlanValidateCmd creates the plan validate command.
func NewPlanValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate PLAN",
		Short: "Validate a plan file without running it",
		Long: `Checks that PLAN parses, declares a supported version, has at least one
task, uses unique task names and gives every task exactly one of value, empty,
fail or command.`,
		Example: `  batchrun plan validate plan.yaml`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}
			cmd.Printf("✅ Plan %s is valid (%s tasks)\n", p.DisplayName(), tui.FormatCount(len(p.Tasks)))
			return nil
		},
	}
}

// NewPlanWindowsCmd creates the plan windows command, which previews how a
// plan is split into windows.
func NewPlanWindowsCmd() *cobra.Command {
	var (
		batchSize int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "windows PLAN",
		Short: "Show how a plan is split into windows",
		Example: `  # Preview with the configured batch size
  batchrun plan windows plan.yaml

  # Preview four tasks per window as JSON
  batchrun plan windows plan.yaml --batch-size 4 --output json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := plan.Load(args[0])
			if err != nil {
				return err
			}

			size := resolveBatchSize(cmd, batchSize, p.BatchSize)
			if size <= 0 {
				return fmt.Errorf("%w: got %d", batch.ErrInvalidBatchSize, size)
			}

			return renderWindows(cmd, output, p.Windows(size))
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "number of tasks per window")
	cmd.Flags().StringVarP(&output, "output", "o", formatTable, "output format: table or json")

	return cmd
}

func renderWindows(cmd *cobra.Command, format string, windows []plan.Window) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(windows)
	case formatTable, formatPlain:
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
		fmt.Fprintln(tw, "Window\tTasks\tNames")
		for _, w := range windows {
			fmt.Fprintf(tw, "%d\t%d\t%s\n", w.Index+1, len(w.Tasks), strings.Join(w.Tasks, ", "))
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
