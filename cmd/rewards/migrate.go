package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rewards/internal/cli"
	"rewards/internal/log"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations to the sqlite or postgres backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if err := requireSQLBackend(cfg); err != nil {
				return err
			}

			// Opening a SQL backend migrates it.
			a, err := openApp(cmd.Context(), log.ComponentStorage, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "%s schema is up to date\n", cfg.DataBackend)
			return nil
		},
	}
}
