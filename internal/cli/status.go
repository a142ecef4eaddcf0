package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// NewStatusCommand creates the status command group.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Read or set the fleet-wide operational status",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "get",
		Short:         "Show the current global status",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			gs, err := a.reg.GlobalStatus(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(gs, func(w io.Writer) { printGlobalStatus(w, gs) })
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <open|closed|meeting|brb|lunch|unavailable>",
		Short: "Set the global status shown on every display",
		Example: `  fleetreg status set meeting`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			gs, err := a.reg.SetGlobalStatus(cmd.Context(), fleet.OperationalStatus(args[0]))
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(gs, func(w io.Writer) { printGlobalStatus(w, gs) })
		}),
	})

	return cmd
}

// NewSummaryCommand creates the summary command.
func NewSummaryCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "summary",
		Short:         "Show fleet counts for dashboards",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			s, err := a.reg.Summary(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(s, func(w io.Writer) {
				fmt.Fprintf(w, "Devices: %d (%d active, %d inactive)\n", s.Total, s.Active, s.Inactive)
				for _, t := range fleet.DeviceTypes {
					fmt.Fprintf(w, "  %-20s %d\n", t, s.ByType[t])
				}
				fmt.Fprintln(w, "Status:")
				for _, st := range fleet.Statuses {
					fmt.Fprintf(w, "  %-20s %d\n", st, s.ByStatus[st])
				}
				fmt.Fprintln(w, "Connection:")
				for _, c := range fleet.ConnectionStatuses {
					fmt.Fprintf(w, "  %-20s %d\n", c, s.ByConnectionStatus[c])
				}
				fmt.Fprintf(w, "Live activation codes: %d\n", s.LiveActivationCodes)
			})
		}),
	}
}

func printGlobalStatus(w io.Writer, gs fleet.GlobalStatus) {
	if gs.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Global status: %s (never set)\n", gs.Status)
		return
	}
	fmt.Fprintf(w, "Global status: %s (since %s)\n", gs.Status, gs.UpdatedAt.Format(time.RFC3339))
}
