package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

// AccountStatus is the read-model for one account: durable quota counters
// projected onto the current windows, the in-memory session state, and the
// effective limits.
type AccountStatus struct {
	Account  domain.Account
	Quota    domain.QuotaState
	Session  domain.SessionState
	Settings domain.Settings
}

type StatusService struct {
	accounts ports.AccountRepository
	quotas   ports.QuotaStore
	sessions *SessionManager
	settings *SettingsService
	clock    ports.Clock
}

func NewStatusService(accounts ports.AccountRepository, quotas ports.QuotaStore, sessions *SessionManager, settings *SettingsService, clock ports.Clock) *StatusService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &StatusService{accounts: accounts, quotas: quotas, sessions: sessions, settings: settings, clock: clock}
}

// Statuses returns one entry per configured account. Counters are projected
// onto the windows containing now without touching the stored state, so a
// stale file still reads as zero used after a boundary.
func (s *StatusService) Statuses(ctx context.Context) ([]AccountStatus, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}

	sort.Slice(accounts, func(i, j int) bool { return accounts[i].ID < accounts[j].ID })

	now := s.clock.Now()
	statuses := make([]AccountStatus, 0, len(accounts))
	for _, account := range accounts {
		quota, err := s.quotas.State(ctx, account.ID)
		if err != nil {
			return nil, fmt.Errorf("quota state for %s: %w", account.ID, err)
		}
		quota.Roll(now)

		settings, err := s.settings.For(ctx, account.ID)
		if err != nil {
			return nil, err
		}

		statuses = append(statuses, AccountStatus{
			Account:  account,
			Quota:    quota,
			Session:  s.sessions.State(account.ID),
			Settings: settings,
		})
	}
	return statuses, nil
}

// Status returns the read-model for a single account.
func (s *StatusService) Status(ctx context.Context, id domain.AccountID) (AccountStatus, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return AccountStatus{}, err
	}

	quota, err := s.quotas.State(ctx, id)
	if err != nil {
		return AccountStatus{}, fmt.Errorf("quota state for %s: %w", id, err)
	}
	quota.Roll(s.clock.Now())

	settings, err := s.settings.For(ctx, id)
	if err != nil {
		return AccountStatus{}, err
	}

	return AccountStatus{
		Account:  account,
		Quota:    quota,
		Session:  s.sessions.State(id),
		Settings: settings,
	}, nil
}
