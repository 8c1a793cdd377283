package cmd

import (
	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/spf13/cobra"
)

func newFollowCmd(app *app) *cobra.Command {
	var flags batchFlags

	cmd := &cobra.Command{
		Use:   "follow --account <account-id> [targets...]",
		Short: "Follow a list of target users with paced, quota-checked actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			accountID, err := cmd.Flags().GetString("account")
			if err != nil {
				return err
			}
			return runBatch(cmd, app, domain.ActionFollow, accountID, args, flags)
		},
	}

	cmd.Flags().String("account", "", "Account to act as")
	_ = cmd.MarkFlagRequired("account")
	flags.register(cmd)

	return cmd
}
