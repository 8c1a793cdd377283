package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newReportCmd(app *app) *cobra.Command {
	var send, watch bool
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize the last week of audited activity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			if watch {
				ticker := time.NewTicker(interval)
				defer ticker.Stop()

				app.logger.Info("report watch started", "interval", interval)
				return app.reports.Watch(ctx, ticker.C)
			}

			if send {
				report, err := app.reports.Send(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "sent report covering %d account(s)\n", len(report.Accounts))
				return err
			}

			report, err := app.reports.BuildWeekly(ctx)
			if err != nil {
				return err
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), app.reports.Render(report))
			return err
		},
	}

	cmd.Flags().BoolVar(&send, "send", false, "Mail the report instead of printing it")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and mail a report on every interval")
	cmd.Flags().DurationVar(&interval, "interval", 7*24*time.Hour, "Mailing interval for --watch")

	return cmd
}
