package cmd

import (
	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/spf13/cobra"
)

func newUnfollowCmd(app *app) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "unfollow --account <account-id> [targets...]",
		Short: "Unfollow a list of target users with paced, quota-checked actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := cmd.Flags().GetString("account")
			if err != nil {
				return err
			}
			return runBatch(cmd, app, domain.ActionUnfollow, accountID, args, flags)
		},
	}

	cmd.Flags().String("account", "", "Account to act as")
	_ = cmd.MarkFlagRequired("account")
	flags.register(cmd)

	return cmd
}
