package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/workflow"

	"github.com/spf13/cobra"
)

func newSubmitCmd(opts *options) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "submit <run-directory>",
		Short: "Submit a created workflow",
		Long: `Submit a run directory made by 'hpcompose create' to the batch
scheduler, or run it in place with --local. Batch jobs call
'hpcompose submit --local' themselves once they start.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := workflow.LoadRecord(args[0])
			if err != nil {
				return err
			}
			c, err := opts.composer()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if local {
				return c.RunLocal(ctx, rec)
			}
			jobID, err := c.Submit(ctx, rec)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"run_id": rec.RunID,
					"job_id": jobID,
				})
			}
			if jobID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Submitted job %s\n", jobID)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&local, "local", false, "Run the workflow on the current allocation instead of submitting it")
	return cmd
}
