package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"rewards/internal/core"
	"rewards/internal/export"
	"rewards/internal/log"
	"rewards/internal/seed"
)

func newExportCommand() *cobra.Command {
	var (
		format   string
		out      string
		pageSize int
		seedData bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every customer's rewards for the current window as CSV or XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, log.ComponentExport, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			if seedData {
				if _, err := seed.SeedIfEmpty(ctx, a.backend.Store, core.DateOf(time.Now())); err != nil {
					return err
				}
			}

			svc, err := a.newService()
			if err != nil {
				return err
			}
			monthFormat, err := a.cfg.Rewards.MonthFormat()
			if err != nil {
				return err
			}

			report, err := export.Collect(ctx, svc, monthFormat, pageSize)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				file, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create %s: %w", out, err)
				}
				defer file.Close()
				w = file
			}

			if err := export.Write(w, f, report); err != nil {
				return err
			}

			a.logger.Info("Rewards exported",
				log.FieldOperation, log.OpExport,
				"format", string(f),
				"customers", len(report.Rows),
				log.FieldWindow, report.Window.String(),
				"out", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "output format: csv or xlsx")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file, - for stdout")
	cmd.Flags().IntVar(&pageSize, "page-size", 100, "customers loaded per page")
	cmd.Flags().BoolVar(&seedData, "seed", false, "seed sample data into an empty store first")

	return cmd
}
