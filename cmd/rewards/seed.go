package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"rewards/internal/core"
	"rewards/internal/log"
	"rewards/internal/seed"
)

func newSeedCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load sample customers and purchases dated relative to today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, log.ComponentApp, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			today := core.DateOf(time.Now())
			out := cmd.OutOrStdout()
			if force {
				res, err := seed.Seed(ctx, a.backend.Store, today)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "seeded %d customers and %d transactions\n", res.Customers, res.Transactions)
				return nil
			}

			seeded, err := seed.SeedIfEmpty(ctx, a.backend.Store, today)
			if err != nil {
				return err
			}
			if !seeded {
				fmt.Fprintln(out, "store already has customers, nothing seeded (use --force to add anyway)")
				return nil
			}
			fmt.Fprintln(out, "sample data seeded")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "seed even when customers already exist")

	return cmd
}
