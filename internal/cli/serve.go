package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/kioskfleet/internal/api"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Listen string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry over HTTP",
		Long: `Serve the registry's JSON API and run the activation-code sweeper.

The database is created if it doesn't exist. Spent activation codes older
than sweep_retention are removed every sweep_interval.

Example:
  fleetreg serve --db ./fleet.db --listen :8080
  fleetreg serve --config ./fleetreg.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides config)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Listen
	if opts.Listen != "" {
		addr = opts.Listen
	}

	// Setup signal handling for graceful shutdown
	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			a.logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
			// Parent context cancelled (e.g., from test)
		}
	}()

	sweepDone := make(chan error, 1)
	go func() {
		sweepDone <- a.reg.RunSweeper(ctx, a.cfg.SweepInterval, a.cfg.SweepRetention)
	}()

	a.logger.Info("registry starting",
		"db", a.cfg.DBPath,
		"code_length", a.cfg.CodeLength,
		"activation_ttl", a.cfg.ActivationTTL,
		"freshness_window", a.cfg.FreshnessWindow)
	fmt.Fprintf(cmd.OutOrStdout(), "Registry listening on %s\n", addr)
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	srv := api.NewServer(a.reg, a.logger)
	serveErr := srv.ListenAndServe(ctx, addr)
	cancel()
	<-sweepDone

	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}

	a.logger.Info("registry stopped gracefully")
	return nil
}
