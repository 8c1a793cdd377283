package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock(t time.Time) *fixedClock { return &fixedClock{now: t} }

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memQuotaStore mirrors the durable store's decision order: hourly before
// daily when both are exhausted.
type memQuotaStore struct {
	mu     sync.Mutex
	quotas map[domain.AccountID]*domain.QuotaState
}

func newMemQuotaStore() *memQuotaStore {
	return &memQuotaStore{quotas: map[domain.AccountID]*domain.QuotaState{}}
}

func (s *memQuotaStore) quota(id domain.AccountID) *domain.QuotaState {
	q, ok := s.quotas[id]
	if !ok {
		q = &domain.QuotaState{}
		s.quotas[id] = q
	}
	return q
}

func (s *memQuotaStore) RollWindows(_ context.Context, id domain.AccountID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota(id).Roll(now)
	return nil
}

func (s *memQuotaStore) CheckAndReserve(_ context.Context, id domain.AccountID, kind domain.ActionKind, limits domain.Settings) (ports.QuotaDecision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.quota(id)
	if q.ActionsThisHour >= limits.ActionsPerHour {
		return ports.QuotaHourlyExceeded, nil
	}
	if q.CountFor(kind) >= limits.DailyLimitFor(kind) {
		return ports.QuotaDailyExceeded, nil
	}
	return ports.QuotaAllowed, nil
}

func (s *memQuotaStore) Commit(_ context.Context, id domain.AccountID, kind domain.ActionKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota(id).Increment(kind)
	return nil
}

func (s *memQuotaStore) State(_ context.Context, id domain.AccountID) (domain.QuotaState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.quota(id), nil
}

type memSessionStore struct {
	mu        sync.Mutex
	sessions  map[domain.AccountID]domain.Session
	saveErr   error
	deleteErr error
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[domain.AccountID]domain.Session{}}
}

func (s *memSessionStore) Load(_ context.Context, id domain.AccountID) (domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, fmt.Errorf("session for %s: %w", id, domain.ErrSessionNotFound)
	}
	return session, nil
}

func (s *memSessionStore) Save(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}
	s.sessions[session.AccountID] = session
	return nil
}

func (s *memSessionStore) Delete(_ context.Context, id domain.AccountID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deleteErr != nil {
		return s.deleteErr
	}
	delete(s.sessions, id)
	return nil
}

// scriptedClient drives the platform boundary from per-call hooks. Nil hooks
// succeed.
type scriptedClient struct {
	mu         sync.Mutex
	loginFn    func(call int, creds ports.Credentials) (domain.Session, error)
	resolveFn  func(call int, username string) (string, error)
	followFn   func(call int, userID string) error
	unfollowFn func(call int, userID string) error

	loginCalls    int
	resolveCalls  int
	followCalls   int
	unfollowCalls int
}

func (c *scriptedClient) Login(_ context.Context, creds ports.Credentials) (domain.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.loginCalls++
	if c.loginFn != nil {
		return c.loginFn(c.loginCalls, creds)
	}
	return domain.Session{Blob: []byte(`{"token":"tok-` + creds.Username + `"}`)}, nil
}

func (c *scriptedClient) ResolveUserID(_ context.Context, _ domain.Session, username string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.resolveCalls++
	if c.resolveFn != nil {
		return c.resolveFn(c.resolveCalls, username)
	}
	return username + "-id", nil
}

func (c *scriptedClient) Follow(_ context.Context, _ domain.Session, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.followCalls++
	if c.followFn != nil {
		return c.followFn(c.followCalls, userID)
	}
	return nil
}

func (c *scriptedClient) Unfollow(_ context.Context, _ domain.Session, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.unfollowCalls++
	if c.unfollowFn != nil {
		return c.unfollowFn(c.unfollowCalls, userID)
	}
	return nil
}

type recordingAudit struct {
	mu      sync.Mutex
	actions []domain.AuditAction
	errors  []domain.AuditError
}

func (a *recordingAudit) RecordAction(_ context.Context, action domain.AuditAction) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
	return nil
}

func (a *recordingAudit) RecordError(_ context.Context, event domain.AuditError) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errors = append(a.errors, event)
	return nil
}

func (a *recordingAudit) ActionsSince(_ context.Context, since time.Time) ([]domain.AuditAction, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []domain.AuditAction
	for _, action := range a.actions {
		if !action.Timestamp.Before(since) {
			out = append(out, action)
		}
	}
	return out, nil
}

func (a *recordingAudit) ErrorsSince(_ context.Context, since time.Time) ([]domain.AuditError, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []domain.AuditError
	for _, event := range a.errors {
		if !event.Timestamp.Before(since) {
			out = append(out, event)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, subject, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.err != nil {
		return n.err
	}
	n.subjects = append(n.subjects, subject)
	return nil
}

// recordingSleeper never blocks. Each sleep is recorded and handed to onSleep,
// whose return value becomes the sleep result.
type recordingSleeper struct {
	mu      sync.Mutex
	slept   []time.Duration
	onSleep func(call int, d time.Duration) error
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.slept = append(s.slept, d)
	if s.onSleep != nil {
		return s.onSleep(len(s.slept), d)
	}
	return nil
}

type staticSettings struct {
	settings domain.Settings
	err      error
}

func (s staticSettings) For(context.Context, domain.AccountID) (domain.Settings, error) {
	return s.settings, s.err
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[domain.AccountID]domain.Account
	saveErr  error
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: map[domain.AccountID]domain.Account{}}
}

func (r *memAccountRepo) GetByID(_ context.Context, id domain.AccountID) (domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return domain.Account{}, fmt.Errorf("account %s: %w", id, domain.ErrAccountNotFound)
	}
	return account, nil
}

func (r *memAccountRepo) List(_ context.Context) ([]domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.Account, 0, len(r.accounts))
	for _, account := range r.accounts {
		out = append(out, account)
	}
	return out, nil
}

func (r *memAccountRepo) Save(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.saveErr != nil {
		return r.saveErr
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *memAccountRepo) Delete(_ context.Context, id domain.AccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.accounts, id)
	return nil
}

type memCredStore struct {
	mu      sync.Mutex
	secrets map[string]string
}

func newMemCredStore() *memCredStore { return &memCredStore{secrets: map[string]string{}} }

func (s *memCredStore) Ref(id domain.AccountID) string {
	return "mem://" + string(id) + "/password"
}

func (s *memCredStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	secret, ok := s.secrets[key]
	if !ok {
		return "", fmt.Errorf("secret %s not found", key)
	}
	return secret, nil
}

func (s *memCredStore) Put(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secrets[key] = value
	return nil
}

func (s *memCredStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.secrets, key)
	return nil
}

type memSettingsRepo struct {
	mu     sync.Mutex
	config domain.SettingsConfig
}

func newMemSettingsRepo() *memSettingsRepo {
	return &memSettingsRepo{config: domain.SettingsConfig{Defaults: domain.DefaultSettings()}}
}

func (r *memSettingsRepo) Load(context.Context) (domain.SettingsConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.config, nil
}

func (r *memSettingsRepo) Save(_ context.Context, cfg domain.SettingsConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cfg
	return nil
}
