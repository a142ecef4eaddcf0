package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// ActivationCreateOptions holds flags for activation create.
type ActivationCreateOptions struct {
	*RootOptions
	Name       string
	Location   string
	AssetTag   string
	Serial     string
	Type       string
	Department string
	Target     string
}

// NewActivationCommand creates the activation command group.
func NewActivationCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "activation",
		Short: "Mint, list and revoke activation codes",
	}

	cmd.AddCommand(newActivationCreateCommand(rootOpts))
	cmd.AddCommand(newActivationListCommand(rootOpts))
	cmd.AddCommand(newActivationGetCommand(rootOpts))
	cmd.AddCommand(newActivationRevokeCommand(rootOpts))
	cmd.AddCommand(newActivationSweepCommand(rootOpts))

	return cmd
}

func newActivationCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ActivationCreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Mint an activation code for a new device",
		Long: `Mint a single-use activation code carrying a device draft.

The code is shown once; type it on the device to activate it. Pass
--target to re-activate an existing device (e.g. after a factory reset).

Example:
  fleetreg activation create --name "Lobby TV" --location HQ-1F --type nova-tv
  fleetreg activation create --name "Atrium Kiosk" --location HQ-1F --type kiosk --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			draft, err := fleet.NewDeviceDraft(opts.Name, opts.Location, opts.AssetTag, opts.Serial,
				fleet.DeviceType(opts.Type), opts.Department)
			if err != nil {
				return a.fail(err)
			}
			draft.TargetDeviceID = opts.Target

			code, err := a.reg.CreateActivation(cmd.Context(), draft)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(code, func(w io.Writer) {
				fmt.Fprintf(w, "Activation code: %s\n", code.Code)
				fmt.Fprintf(w, "  ID:      %s\n", code.ID)
				fmt.Fprintf(w, "  Device:  %s (%s) at %s\n", code.Draft.Name, code.Draft.Type(), code.Draft.Location)
				fmt.Fprintf(w, "  Expires: %s\n", code.ExpiresAt.Format(time.RFC3339))
			})
		}),
	}

	cmd.Flags().StringVar(&opts.Name, "name", "", "device name (required)")
	cmd.Flags().StringVar(&opts.Location, "location", "", "device location (required)")
	cmd.Flags().StringVar(&opts.Type, "type", "", "device type: kiosk|nova-tv (required)")
	cmd.Flags().StringVar(&opts.AssetTag, "asset-tag", "", "asset tag")
	cmd.Flags().StringVar(&opts.Serial, "serial", "", "serial number")
	cmd.Flags().StringVar(&opts.Department, "department", "", "department (nova-tv only)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "existing device id to re-activate")

	return cmd
}

func newActivationListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List live activation codes",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			codes, err := a.reg.ListActive(cmd.Context())
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(codes, func(w io.Writer) {
				if len(codes) == 0 {
					fmt.Fprintln(w, "No live activation codes.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tID\tTYPE\tNAME\tLOCATION\tEXPIRES")
				for _, c := range codes {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						c.Code, c.ID, c.Draft.Type(), c.Draft.Name, c.Draft.Location,
						c.ExpiresAt.Format(time.RFC3339))
				}
				tw.Flush()
			})
		}),
	}
}

func newActivationGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one activation code, live or spent",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			code, err := a.reg.GetActivation(cmd.Context(), args[0])
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(code, func(w io.Writer) {
				fmt.Fprintf(w, "%s %s (%s)\n", code.ID, code.Code, activationState(code))
				fmt.Fprintf(w, "  Device:  %s (%s) at %s\n", code.Draft.Name, code.Draft.Type(), code.Draft.Location)
				fmt.Fprintf(w, "  Expires: %s\n", code.ExpiresAt.Format(time.RFC3339))
				if code.Used {
					fmt.Fprintf(w, "  Redeemed by device %s\n", code.DeviceID)
				}
			})
		}),
	}
}

func newActivationRevokeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "revoke <id>",
		Short:         "Withdraw an unused activation code",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			code, err := a.reg.Revoke(cmd.Context(), args[0])
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(code, func(w io.Writer) {
				fmt.Fprintf(w, "Revoked activation code %s (%s)\n", code.Code, code.ID)
			})
		}),
	}
}

func newActivationSweepCommand(rootOpts *RootOptions) *cobra.Command {
	var retention time.Duration

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete expired activation codes",
		Long: `Delete unused activation codes that expired more than the retention
period ago. Used and revoked codes are kept for audit. The retention
defaults to sweep_retention from config.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("retention") {
				retention = a.cfg.SweepRetention
			}
			n, err := a.reg.Sweep(cmd.Context(), retention)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(map[string]int64{"deleted": n}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %d activation code(s)\n", n)
			})
		}),
	}

	cmd.Flags().DurationVar(&retention, "retention", 0, "keep codes that expired less than this long ago")

	return cmd
}

func activationState(a fleet.ActivationCode) string {
	switch {
	case a.Used:
		return "used"
	case a.Revoked():
		return "revoked"
	case a.Expired(time.Now()):
		return "expired"
	}
	return "live"
}
