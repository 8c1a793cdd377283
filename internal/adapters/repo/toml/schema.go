package toml

import (
	"fmt"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID            string      `toml:"id"`
	Name          string      `toml:"name"`
	CredentialRef string      `toml:"credential_ref"`
	Quota         quotaSchema `toml:"quota,omitempty"`
}

type quotaSchema struct {
	FollowsToday    int    `toml:"follows_today"`
	UnfollowsToday  int    `toml:"unfollows_today"`
	DayStart        string `toml:"day_start,omitempty"`
	ActionsThisHour int    `toml:"actions_this_hour"`
	HourStart       string `toml:"hour_start,omitempty"`
}

func toSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:            string(account.ID),
		Name:          account.Name,
		CredentialRef: account.CredentialRef,
		Quota: quotaSchema{
			FollowsToday:    account.Quota.FollowsToday,
			UnfollowsToday:  account.Quota.UnfollowsToday,
			DayStart:        formatTime(account.Quota.DayStart),
			ActionsThisHour: account.Quota.ActionsThisHour,
			HourStart:       formatTime(account.Quota.HourStart),
		},
	}
}

func fromSchema(account accountSchema) domain.Account {
	return domain.Account{
		ID:            domain.AccountID(account.ID),
		Name:          account.Name,
		CredentialRef: account.CredentialRef,
		Quota: domain.QuotaState{
			FollowsToday:    account.Quota.FollowsToday,
			UnfollowsToday:  account.Quota.UnfollowsToday,
			DayStart:        parseTime(account.Quota.DayStart),
			ActionsThisHour: account.Quota.ActionsThisHour,
			HourStart:       parseTime(account.Quota.HourStart),
		},
	}
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed.UTC()
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
