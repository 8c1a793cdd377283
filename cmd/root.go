package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vulture",
		Short:         "Bulk follow/unfollow engine with per-account rate limits",
		Long:          "vulture runs paced follow and unfollow batches against platform accounts, enforcing daily and hourly quotas, persisting sessions between runs, and keeping an audit trail of every action.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newAccountCmd(app),
		newLoginCmd(app),
		newFollowCmd(app),
		newUnfollowCmd(app),
		newStatusCmd(app),
		newSettingsCmd(app),
		newReportCmd(app),
	)

	return rootCmd
}
