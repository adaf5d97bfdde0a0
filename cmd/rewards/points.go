package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rewards/internal/cli"
	"rewards/internal/core"
)

func newPointsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "points AMOUNT...",
		Short: "Print the points each purchase amount earns",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			schedule, err := cfg.Rewards.Schedule()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, arg := range args {
				amount, err := core.ParseAmount(arg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%d\n", core.FormatAmount(amount), schedule.Points(amount))
			}
			return nil
		},
	}
}
