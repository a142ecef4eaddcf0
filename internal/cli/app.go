package cli

import (
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/kioskfleet/internal/codegen"
	"github.com/roach88/kioskfleet/internal/config"
	"github.com/roach88/kioskfleet/internal/fleet"
	"github.com/roach88/kioskfleet/internal/registry"
	"github.com/roach88/kioskfleet/internal/store"
)

// app bundles what a registry command needs. Close releases the store.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
	reg    *registry.Registry
	out    *OutputFormatter
}

// loadConfig resolves the configuration from the global flags.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(config.Options{
		File:    opts.ConfigFile,
		EnvFile: opts.EnvFile,
	})
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Database != "" {
		cfg.DBPath = opts.Database
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(cfg config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.SlogLevel()
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// openApp loads config, opens the database and builds the registry.
func openApp(opts *RootOptions, cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg, opts.Verbose, cmd.ErrOrStderr())

	logger.Debug("opening database", "path", cfg.DBPath)
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	gen, err := codegen.New(cfg.CodeLength)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid code length", err)
	}
	reg, err := registry.New(st,
		registry.WithCodeGenerator(gen),
		registry.WithActivationTTL(cfg.ActivationTTL),
		registry.WithFreshnessWindow(cfg.FreshnessWindow),
		registry.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "failed to create registry", err)
	}

	return &app{
		cfg:    cfg,
		logger: logger,
		store:  st,
		reg:    reg,
		out: &OutputFormatter{
			Format:    opts.Format,
			Writer:    cmd.OutOrStdout(),
			ErrWriter: cmd.ErrOrStderr(),
			Verbose:   opts.Verbose,
		},
	}, nil
}

// Close releases the database.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("error closing database", "error", err)
	}
}

// fail reports a registry error in the configured format and converts it
// into an exit error. Registry errors exit with ExitFailure; anything else
// is a command error.
func (a *app) fail(err error) error {
	var fe *fleet.Error
	if !errors.As(err, &fe) {
		return WrapExitError(ExitCommandError, "command failed", err)
	}
	var details any
	if fe.ID != "" {
		details = map[string]string{"id": fe.ID}
	}
	if outErr := a.out.Error(string(fe.Code), fe.Message, details); outErr != nil {
		return outErr
	}
	return WrapExitError(ExitFailure, string(fe.Code), err)
}

// usageError reports malformed command input the way registry validation
// errors are reported.
func (a *app) usageError(message string) error {
	return a.fail(fleet.NewValidationError(message))
}

// registryCommand wraps a RunE body with openApp/Close.
func registryCommand(opts *RootOptions, run func(a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(opts, cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return run(a, cmd, args)
	}
}
