package domain

import (
	"fmt"
	"time"
)

// DelayRange is an inclusive range of seconds to pause between actions.
type DelayRange struct {
	Min int
	Max int
}

func (r DelayRange) Validate() error {
	if r.Min < 0 {
		return fmt.Errorf("delay minimum %d is negative", r.Min)
	}
	if r.Min > r.Max {
		return fmt.Errorf("delay minimum %d exceeds maximum %d", r.Min, r.Max)
	}
	return nil
}

func (r DelayRange) MinDuration() time.Duration { return time.Duration(r.Min) * time.Second }
func (r DelayRange) MaxDuration() time.Duration { return time.Duration(r.Max) * time.Second }

// Settings holds the throttling knobs. A limit of 0 disables the matching
// action kind for the account.
type Settings struct {
	FollowDelay        DelayRange
	UnfollowDelay      DelayRange
	DailyFollowLimit   int
	DailyUnfollowLimit int
	ActionsPerHour     int
}

func DefaultSettings() Settings {
	return Settings{
		FollowDelay:        DelayRange{Min: 30, Max: 90},
		UnfollowDelay:      DelayRange{Min: 30, Max: 90},
		DailyFollowLimit:   100,
		DailyUnfollowLimit: 100,
		ActionsPerHour:     30,
	}
}

func (s Settings) Validate() error {
	if err := s.FollowDelay.Validate(); err != nil {
		return fmt.Errorf("follow delay: %w", err)
	}
	if err := s.UnfollowDelay.Validate(); err != nil {
		return fmt.Errorf("unfollow delay: %w", err)
	}
	if s.DailyFollowLimit < 0 {
		return fmt.Errorf("daily follow limit %d is negative", s.DailyFollowLimit)
	}
	if s.DailyUnfollowLimit < 0 {
		return fmt.Errorf("daily unfollow limit %d is negative", s.DailyUnfollowLimit)
	}
	if s.ActionsPerHour < 0 {
		return fmt.Errorf("actions per hour %d is negative", s.ActionsPerHour)
	}
	return nil
}

func (s Settings) DelayFor(kind ActionKind) DelayRange {
	if kind == ActionUnfollow {
		return s.UnfollowDelay
	}
	return s.FollowDelay
}

func (s Settings) DailyLimitFor(kind ActionKind) int {
	if kind == ActionUnfollow {
		return s.DailyUnfollowLimit
	}
	return s.DailyFollowLimit
}

// SettingsConfig is the persisted settings surface: process-wide defaults
// plus whole-Settings overrides per account.
type SettingsConfig struct {
	Defaults  Settings
	Overrides map[AccountID]Settings
}

func (c SettingsConfig) For(id AccountID) Settings {
	if override, ok := c.Overrides[id]; ok {
		return override
	}
	return c.Defaults
}
