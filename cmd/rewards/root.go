package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"rewards/internal/backend"
	"rewards/internal/cli"
	"rewards/internal/config"
	"rewards/internal/log"
	"rewards/internal/services"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "rewards",
		Short:   "Customer reward points over a trailing window of purchases",
		Version: version,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newPointsCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newExportCommand(),
	)

	return rootCmd
}

// app holds what every subcommand that touches storage needs.
type app struct {
	cfg     *config.Config
	logger  *log.Logger
	backend *backend.BackendResult
}

// openApp logs to logOut so commands that print data keep stdout clean.
func openApp(ctx context.Context, component string, logOut io.Writer) (*app, error) {
	logger := cli.SetupLoggerTo(component, logOut)

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}

	res, err := cli.OpenBackend(ctx, cfg, logger.WithComponent(log.ComponentBackend).Logger)
	if err != nil {
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, backend: res}, nil
}

func (a *app) newService(opts ...services.Option) (*services.RewardsService, error) {
	return cli.NewRewardsService(a.cfg, a.backend, opts...)
}

func (a *app) Close() {
	if err := a.backend.Close(); err != nil {
		a.logger.Warn("Failed to close backend", log.FieldError, err)
	}
}

func requireSQLBackend(cfg *config.Config) error {
	switch backend.BackendType(cfg.DataBackend) {
	case backend.SQLiteBackend, backend.PostgresBackend:
		return nil
	default:
		return fmt.Errorf("%s backend has no schema to migrate (want one of sqlite, postgres)", cfg.DataBackend)
	}
}
