package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kioskfleet/internal/fleet"
)

// NewDeviceCommand creates the device command group.
func NewDeviceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Inspect and manage activated devices",
	}

	cmd.AddCommand(newDeviceListCommand(rootOpts))
	cmd.AddCommand(newDeviceGetCommand(rootOpts))
	cmd.AddCommand(newDeviceSetActiveCommand(rootOpts))
	cmd.AddCommand(newDeviceSetStatusCommand(rootOpts))
	cmd.AddCommand(newDeviceHeartbeatCommand(rootOpts))
	cmd.AddCommand(newDeviceDeleteCommand(rootOpts))

	return cmd
}

func newDeviceListCommand(rootOpts *RootOptions) *cobra.Command {
	var deviceType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List devices",
		Long: `List devices ordered by name.

Connection status is derived: a device not heard from within the
freshness window is shown offline.

Example:
  fleetreg device list
  fleetreg device list --type nova-tv --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			var filter fleet.DeviceFilter
			if deviceType != "" {
				t, err := fleet.ParseDeviceType(deviceType)
				if err != nil {
					return a.fail(err)
				}
				filter.Type = t
			}
			devices, err := a.reg.List(cmd.Context(), filter)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(devices, func(w io.Writer) {
				if len(devices) == 0 {
					fmt.Fprintln(w, "No devices.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tTYPE\tNAME\tLOCATION\tSTATUS\tCONNECTION\tACTIVE")
				for _, d := range devices {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
						d.ID, d.Type(), d.Name, d.Location, d.Status, d.ConnectionStatus, d.Active)
				}
				tw.Flush()
			})
		}),
	}

	cmd.Flags().StringVar(&deviceType, "type", "", "only list devices of this type (kiosk|nova-tv)")

	return cmd
}

func newDeviceGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <id>",
		Short:         "Show one device",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			d, err := a.reg.Get(cmd.Context(), args[0])
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(d, func(w io.Writer) { printDevice(w, d) })
		}),
	}
}

func newDeviceSetActiveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-active <id> <true|false>",
		Short: "Enable or disable a device",
		Example: `  fleetreg device set-active 0190c3a4-... false`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			active, err := strconv.ParseBool(args[1])
			if err != nil {
				return a.usageError(fmt.Sprintf("active must be true or false, got %q", args[1]))
			}
			d, err := a.reg.SetActive(cmd.Context(), args[0], active)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(d, func(w io.Writer) { printDevice(w, d) })
		}),
	}
}

func newDeviceSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set-status <id> <status>",
		Short: "Change a device's administrative status",
		Long: `Change a device's administrative status.

Valid statuses are online, offline and maintenance. pending_activation can
neither be entered nor left this way.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			d, err := a.reg.SetStatus(cmd.Context(), args[0], fleet.Status(args[1]))
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(d, func(w io.Writer) { printDevice(w, d) })
		}),
	}
}

func newDeviceHeartbeatCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat <id> [online|offline]",
		Short: "Record a connection report from a device",
		Long: `Record a connection report from a device, stamping last-seen with the
current time. The reported status defaults to online.`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			cs := fleet.ConnectionOnline
			if len(args) == 2 {
				cs = fleet.ConnectionStatus(args[1])
			}
			d, err := a.reg.RecordHeartbeat(cmd.Context(), args[0], cs)
			if err != nil {
				return a.fail(err)
			}
			return a.out.Render(d, func(w io.Writer) { printDevice(w, d) })
		}),
	}
}

func newDeviceDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <id>",
		Short:         "Remove a device from the fleet",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: registryCommand(rootOpts, func(a *app, cmd *cobra.Command, args []string) error {
			if err := a.reg.Delete(cmd.Context(), args[0]); err != nil {
				return a.fail(err)
			}
			data := map[string]any{"id": args[0], "deleted": true}
			return a.out.Render(data, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted device %s\n", args[0])
			})
		}),
	}
}

// printDevice writes a multi-line description of one device.
func printDevice(w io.Writer, d fleet.Device) {
	fmt.Fprintf(w, "%s %q (%s)\n", d.ID, d.Name, d.Type())
	fmt.Fprintf(w, "  Location:   %s\n", d.Location)
	if d.Department() != "" {
		fmt.Fprintf(w, "  Department: %s\n", d.Department())
	}
	if d.AssetTag != "" {
		fmt.Fprintf(w, "  Asset tag:  %s\n", d.AssetTag)
	}
	if d.SerialNumber != "" {
		fmt.Fprintf(w, "  Serial:     %s\n", d.SerialNumber)
	}
	fmt.Fprintf(w, "  Status:     %s\n", d.Status)
	fmt.Fprintf(w, "  Connection: %s\n", d.ConnectionStatus)
	fmt.Fprintf(w, "  Active:     %t\n", d.Active)
	if d.LastSeen != nil {
		fmt.Fprintf(w, "  Last seen:  %s\n", d.LastSeen.Format(time.RFC3339))
	}
}
