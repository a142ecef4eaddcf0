package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/kioskfleet/internal/registry"
)

// NewRedeemCommand creates the redeem command.
func NewRedeemCommand(rootOpts *RootOptions) *cobra.Command {
	var serial string

	cmd := &cobra.Command{
		Use:   "redeem <code>",
		Short: "Redeem an activation code, creating the device",
		Long: `Redeem an activation code on behalf of a device.

Codes are case-insensitive and may contain spaces or dashes. Each code
activates exactly one device; later attempts fail with ALREADY_USED.

Exit codes:
  0 - Device activated
  1 - Code unknown, expired or already used
  2 - Command error

Example:
  fleetreg redeem K7Q-M2X
  fleetreg redeem k7qm2x --serial SN-0042 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			d, err := a.reg.Redeem(cmd.Context(), args[0], registry.RedeemExtra{SerialNumber: serial})
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(d, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Activated %s %q (%s)\n", d.Type(), d.Name, d.ID)
			})
		}),
	}

	cmd.Flags().StringVar(&serial, "serial", "", "serial number reported by the device")

	return cmd
}
