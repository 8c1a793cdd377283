package cmd

import (
	"fmt"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "login <account-id>",
		Short: "Authenticate an account and persist its session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.AccountID(args[0])

			creds, err := app.accounts.CredentialsFor(cmd.Context(), id)
			if err != nil {
				return err
			}

			state, err := app.sessions.Login(cmd.Context(), id, creds)
			if err != nil {
				if state == domain.SessionChallengePending {
					return fmt.Errorf("the platform requires a manual challenge for %s; resolve it in a browser, then retry: %w", id, err)
				}
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "account %s is %s\n", id, state)
			return err
		},
	}
}
