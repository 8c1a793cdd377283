package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

// SessionManager owns the per-account login state machine:
//
//	LoggedOut -> Authenticating -> Authenticated
//	Authenticating -> ChallengePending | Failed
//	Authenticated -> LoggedOut (Invalidate)
//
// ChallengePending and Failed are terminal for a run; the executor surfaces
// them and stops the account instead of retrying login in a loop. An operator
// can still call Login again explicitly (the `login` command does).
type SessionManager struct {
	store  ports.SessionStore
	client ports.PlatformClient
	clock  ports.Clock
	log    *slog.Logger

	mu       sync.Mutex
	accounts map[domain.AccountID]*accountSession
}

type accountSession struct {
	mu      sync.Mutex
	state   domain.SessionState
	session domain.Session
}

func NewSessionManager(store ports.SessionStore, client ports.PlatformClient, clock ports.Clock, log *slog.Logger) *SessionManager {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &SessionManager{
		store:    store,
		client:   client,
		clock:    clock,
		log:      log,
		accounts: map[domain.AccountID]*accountSession{},
	}
}

func (m *SessionManager) entry(id domain.AccountID) *accountSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.accounts[id]
	if !ok {
		entry = &accountSession{state: domain.SessionLoggedOut}
		m.accounts[id] = entry
	}
	return entry
}

// Login brings the account to Authenticated. A persisted session is adopted
// without a network round trip; its validity is confirmed by the next real
// action. Only one Login per account runs at a time, and it is mutually
// exclusive with Invalidate for that account.
func (m *SessionManager) Login(ctx context.Context, id domain.AccountID, creds ports.Credentials) (domain.SessionState, error) {
	entry := m.entry(id)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.state == domain.SessionAuthenticated {
		return entry.state, nil
	}

	entry.state = domain.SessionAuthenticating

	persisted, err := m.store.Load(ctx, id)
	switch {
	case err == nil && len(persisted.Blob) > 0:
		entry.session = persisted
		entry.state = domain.SessionAuthenticated
		m.log.Debug("adopted persisted session", "account", id)
		return entry.state, nil
	case err != nil && !errors.Is(err, domain.ErrSessionNotFound):
		entry.state = domain.SessionLoggedOut
		return entry.state, fmt.Errorf("load persisted session: %w", err)
	}

	session, err := m.client.Login(ctx, creds)
	if err != nil {
		switch domain.KindOf(err) {
		case domain.KindAuthChallenge:
			entry.state = domain.SessionChallengePending
		default:
			entry.state = domain.SessionFailed
		}
		m.log.Warn("login failed", "account", id, "state", entry.state, "err", err)
		return entry.state, err
	}

	session.AccountID = id
	if session.LastVerifiedAt.IsZero() {
		session.LastVerifiedAt = m.clock.Now().UTC()
	}

	if err := m.store.Save(ctx, session); err != nil {
		entry.state = domain.SessionFailed
		return entry.state, fmt.Errorf("persist session: %w", err)
	}

	entry.session = session
	entry.state = domain.SessionAuthenticated
	m.log.Info("authenticated", "account", id)
	return entry.state, nil
}

// GetLiveSession returns the current session handle, or
// domain.ErrNotAuthenticated when the account is in any other state.
func (m *SessionManager) GetLiveSession(ctx context.Context, id domain.AccountID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	entry := m.entry(id)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.state != domain.SessionAuthenticated {
		return domain.Session{}, fmt.Errorf("%w (state %s)", domain.ErrNotAuthenticated, entry.state)
	}

	return entry.session, nil
}

// Invalidate is called when the platform rejected a call for session loss.
// It clears the persisted blob so the next Login re-authenticates from
// scratch.
func (m *SessionManager) Invalidate(ctx context.Context, id domain.AccountID, reason string) error {
	entry := m.entry(id)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	entry.state = domain.SessionLoggedOut
	entry.session = domain.Session{}

	if err := m.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("clear persisted session: %w", err)
	}

	m.log.Info("session invalidated", "account", id, "reason", reason)
	return nil
}

func (m *SessionManager) State(id domain.AccountID) domain.SessionState {
	entry := m.entry(id)
	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.state
}
