package ports

import (
	"context"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

type QuotaDecision string

const (
	QuotaAllowed        QuotaDecision = "allowed"
	QuotaDailyExceeded  QuotaDecision = "daily_limit_exceeded"
	QuotaHourlyExceeded QuotaDecision = "hourly_limit_exceeded"
)

// QuotaStore owns the durable per-account counters. Reservation and commit
// are separate on purpose: CheckAndReserve only confirms headroom against the
// supplied limits, Commit increments after the platform call succeeded. A
// failed call must never reach Commit, so errors cannot leak quota.
//
// When both windows are exhausted at once, CheckAndReserve reports the hourly
// limit: it is the finer-grained signal and resolves sooner.
type QuotaStore interface {
	RollWindows(ctx context.Context, id domain.AccountID, now time.Time) error
	CheckAndReserve(ctx context.Context, id domain.AccountID, kind domain.ActionKind, limits domain.Settings) (QuotaDecision, error)
	Commit(ctx context.Context, id domain.AccountID, kind domain.ActionKind) error
	State(ctx context.Context, id domain.AccountID) (domain.QuotaState, error)
}
