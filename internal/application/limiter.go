package application

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

// RateLimiter gates each action. The randomized inter-action delay is the
// primary anti-detection control; the cross-kind hourly cap is a secondary
// throttle that catches bursts the daily totals alone would miss.
type RateLimiter struct {
	quotas ports.QuotaStore
	intN   func(n int) int
}

func NewRateLimiter(quotas ports.QuotaStore) *RateLimiter {
	return &RateLimiter{
		quotas: quotas,
		intN:   rand.IntN,
	}
}

// NextDelay draws a pause uniformly at random from the configured range for
// the kind, endpoints included.
func (l *RateLimiter) NextDelay(kind domain.ActionKind, settings domain.Settings) time.Duration {
	delay := settings.DelayFor(kind)
	if delay.Max <= delay.Min {
		return delay.MinDuration()
	}

	seconds := delay.Min + l.intN(delay.Max-delay.Min+1)
	return time.Duration(seconds) * time.Second
}

// Admit rolls the quota windows and checks headroom. A limit of 0 disables
// the kind outright, reported as the daily decision so callers take the
// skip path instead of suspending for a cap that will never open.
func (l *RateLimiter) Admit(ctx context.Context, id domain.AccountID, kind domain.ActionKind, now time.Time, settings domain.Settings) (ports.QuotaDecision, error) {
	if settings.DailyLimitFor(kind) == 0 || settings.ActionsPerHour == 0 {
		return ports.QuotaDailyExceeded, nil
	}

	if err := l.quotas.RollWindows(ctx, id, now); err != nil {
		return "", fmt.Errorf("roll quota windows: %w", err)
	}

	decision, err := l.quotas.CheckAndReserve(ctx, id, kind, settings)
	if err != nil {
		return "", fmt.Errorf("check quota: %w", err)
	}

	return decision, nil
}
