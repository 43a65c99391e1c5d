package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/workflow"
	"github.com/ehsaniara/hpcompose/internal/hpcompose/workflow/types"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"
)

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan <workflow.yaml>",
		Short: "Show how a workflow is placed and launched",
		Long: `Validate a workflow description, place its applications onto nodes
and print the node mapping and the launch command of every application.
Nothing is written.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := loadWorkflow(opts, args[0])
			if err != nil {
				return err
			}
			c, err := opts.composer()
			if err != nil {
				return err
			}
			rec, err := c.Plan(w)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			printPlan(cmd.OutOrStdout(), rec)
			return nil
		},
	}
}

func loadWorkflow(opts *options, path string) (*workflow.Workflow, error) {
	wy, err := types.Load(path)
	if err != nil {
		return nil, err
	}
	return wy.ToWorkflow(opts.cfg)
}

func printPlan(out io.Writer, rec *workflow.Record) {
	fmt.Fprintf(out, "Workflow %s on %s (%d cores, %d gpus per node)\n",
		rec.Name, rec.Machine.Name, rec.Machine.Cores, rec.Machine.GPUs)
	fmt.Fprintf(out, "Nodes required: %d\n\n", rec.Plan.RequiredNodes())
	for _, line := range rec.Plan.Describe() {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out)
	for _, ar := range rec.Applications {
		fmt.Fprintf(out, "%s: %s\n", ar.Name, shellquote.Join(ar.Command...))
	}
	if rec.Scheduler != "" {
		fmt.Fprintf(out, "\nScheduler: %s (nodes %d)\n", rec.Scheduler, rec.Job.Nodes)
	}
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
