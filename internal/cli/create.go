package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCreateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create <workflow.yaml>",
		Short: "Create the run directory of a workflow",
		Long: `Place a workflow and create its run directory: application
directories, inputs, setup files, launch scripts and workflow.json.
The directory must not exist yet.`,
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
			rec, err := c.Create(w)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"run_id":    rec.RunID,
					"directory": rec.Directory,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Directory)
			return nil
		},
	}
}
