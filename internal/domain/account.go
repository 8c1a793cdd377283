package domain

import "time"

type AccountID string

// Account is an operator-owned platform account. The ID is the platform
// username. CredentialRef points to a credential-store entry and is never
// written to logs or audit records.
type Account struct {
	ID            AccountID
	Name          string
	CredentialRef string
	Quota         QuotaState
}

// QuotaState carries the durable per-account counters. Counters only move
// forward inside their window; crossing a window boundary resets them exactly
// once, never retroactively.
type QuotaState struct {
	FollowsToday    int
	UnfollowsToday  int
	DayStart        time.Time
	ActionsThisHour int
	HourStart       time.Time
}

// NewQuotaState returns zeroed counters with windows anchored at now.
func NewQuotaState(now time.Time) QuotaState {
	q := QuotaState{}
	q.Roll(now)
	return q
}

// Roll resets the daily counters when now falls on a different UTC calendar
// day than DayStart, and the hourly counter when now falls in a different
// clock-hour bucket than HourStart. Window starts are normalized to the
// bucket boundary, which makes repeated calls with the same now a no-op.
func (q *QuotaState) Roll(now time.Time) {
	now = now.UTC()

	dayStart := now.Truncate(24 * time.Hour)
	if !q.DayStart.Equal(dayStart) {
		q.FollowsToday = 0
		q.UnfollowsToday = 0
		q.DayStart = dayStart
	}

	hourStart := now.Truncate(time.Hour)
	if !q.HourStart.Equal(hourStart) {
		q.ActionsThisHour = 0
		q.HourStart = hourStart
	}
}

func (q QuotaState) CountFor(kind ActionKind) int {
	switch kind {
	case ActionFollow:
		return q.FollowsToday
	case ActionUnfollow:
		return q.UnfollowsToday
	default:
		return 0
	}
}

func (q *QuotaState) Increment(kind ActionKind) {
	switch kind {
	case ActionFollow:
		q.FollowsToday++
	case ActionUnfollow:
		q.UnfollowsToday++
	}
	q.ActionsThisHour++
}
