package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/spf13/cobra"
)

func newSettingsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect and change pacing limits",
	}

	cmd.AddCommand(
		newSettingsShowCmd(app),
		newSettingsSetCmd(app),
		newSettingsClearCmd(app),
	)

	return cmd
}

func newSettingsShowCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show defaults and per-account overrides",
		RunE: func(cmd *cobra.Command, _ []string) error {
			config, err := app.settings.Get(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "defaults:")
			printSettings(out, config.Defaults)
			for id, override := range config.Overrides {
				fmt.Fprintf(out, "override %s:\n", id)
				printSettings(out, override)
			}
			return nil
		},
	}
}

func printSettings(out io.Writer, s domain.Settings) {
	fmt.Fprintf(out, "  follow delay:        %d-%d s\n", s.FollowDelay.Min, s.FollowDelay.Max)
	fmt.Fprintf(out, "  unfollow delay:      %d-%d s\n", s.UnfollowDelay.Min, s.UnfollowDelay.Max)
	fmt.Fprintf(out, "  daily follow limit:  %d\n", s.DailyFollowLimit)
	fmt.Fprintf(out, "  daily unfollow limit: %d\n", s.DailyUnfollowLimit)
	fmt.Fprintf(out, "  actions per hour:    %d\n", s.ActionsPerHour)
}

func newSettingsSetCmd(app *app) *cobra.Command {
	var accountID string
	var followDelay, unfollowDelay string
	var dailyFollows, dailyUnfollows, perHour int

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change defaults, or one account's override with --account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			base := domain.DefaultSettings()
			if accountID != "" {
				// an override starts from the current effective settings
				var err error
				base, err = app.settings.For(ctx, domain.AccountID(accountID))
				if err != nil {
					return err
				}
			} else {
				config, err := app.settings.Get(ctx)
				if err != nil {
					return err
				}
				base = config.Defaults
			}

			if followDelay != "" {
				parsed, err := parseDelayRange(followDelay)
				if err != nil {
					return fmt.Errorf("--follow-delay: %w", err)
				}
				base.FollowDelay = parsed
			}
			if unfollowDelay != "" {
				parsed, err := parseDelayRange(unfollowDelay)
				if err != nil {
					return fmt.Errorf("--unfollow-delay: %w", err)
				}
				base.UnfollowDelay = parsed
			}
			if cmd.Flags().Changed("daily-follows") {
				base.DailyFollowLimit = dailyFollows
			}
			if cmd.Flags().Changed("daily-unfollows") {
				base.DailyUnfollowLimit = dailyUnfollows
			}
			if cmd.Flags().Changed("per-hour") {
				base.ActionsPerHour = perHour
			}

			if accountID != "" {
				return app.settings.SetOverride(ctx, domain.AccountID(accountID), base)
			}
			return app.settings.SetDefaults(ctx, base)
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "Set an override for this account instead of the defaults")
	cmd.Flags().StringVar(&followDelay, "follow-delay", "", "Inclusive delay range between follows, e.g. 30-90")
	cmd.Flags().StringVar(&unfollowDelay, "unfollow-delay", "", "Inclusive delay range between unfollows, e.g. 30-90")
	cmd.Flags().IntVar(&dailyFollows, "daily-follows", 0, "Daily follow limit (0 disables follows)")
	cmd.Flags().IntVar(&dailyUnfollows, "daily-unfollows", 0, "Daily unfollow limit (0 disables unfollows)")
	cmd.Flags().IntVar(&perHour, "per-hour", 0, "Hourly cap across both kinds (0 disables all actions)")

	return cmd
}

func newSettingsClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-override <account-id>",
		Short: "Drop an account's override so the defaults apply again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.settings.ClearOverride(cmd.Context(), domain.AccountID(args[0]))
		},
	}
}

func parseDelayRange(raw string) (domain.DelayRange, error) {
	lo, hi, ok := strings.Cut(raw, "-")
	if !ok {
		return domain.DelayRange{}, fmt.Errorf("expected min-max seconds, got %q", raw)
	}

	min, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return domain.DelayRange{}, fmt.Errorf("invalid minimum %q", lo)
	}
	max, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return domain.DelayRange{}, fmt.Errorf("invalid maximum %q", hi)
	}

	r := domain.DelayRange{Min: min, Max: max}
	if err := r.Validate(); err != nil {
		return domain.DelayRange{}, err
	}
	return r, nil
}
