package cmd

import (
	"encoding/json"
	"fmt"

	statusadapter "github.com/PreboozedGoose/Vulture/internal/adapters/render/status"
	"github.com/PreboozedGoose/Vulture/internal/application"
	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var accountID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show quota usage and session state per account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var statuses []application.AccountStatus

			if accountID != "" {
				status, err := app.status.Status(cmd.Context(), domain.AccountID(accountID))
				if err != nil {
					return err
				}
				statuses = []application.AccountStatus{status}
			} else {
				var err error
				statuses, err = app.status.Statuses(cmd.Context())
				if err != nil {
					return err
				}
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(statuses)
			}

			rendered, err := app.statusRenderer(statuses, statusadapter.RenderOptions{Now: app.now()})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Limit output to one account")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit machine-readable JSON")

	return cmd
}
