package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/ehsaniara/hpcompose/internal/hpcompose/topology"

	"github.com/spf13/cobra"
)

func newMachinesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "machines",
		Short: "List the built-in machines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			machines := topology.Machines()
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), machines)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCORES\tGPUS\tLAUNCHER\tSCHEDULER")
			for _, m := range machines {
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", m.Name, m.Cores, m.GPUs, dash(m.Launcher), dash(m.Scheduler))
			}
			return w.Flush()
		},
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
