package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

type credentialReferencer interface {
	ports.CredentialStore
	Ref(id domain.AccountID) string
}

// AccountService manages the account roster and its stored credentials. The
// secret never touches the account record; the record carries only a
// reference into the credential store.
type AccountService struct {
	accounts ports.AccountRepository
	creds    credentialReferencer
	sessions ports.SessionStore
	clock    ports.Clock
}

func NewAccountService(accounts ports.AccountRepository, creds credentialReferencer, sessions ports.SessionStore, clock ports.Clock) *AccountService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &AccountService{accounts: accounts, creds: creds, sessions: sessions, clock: clock}
}

// Add registers an account with fresh quota windows. The credential is
// stored first; if the record cannot be written the credential is removed
// again so the store holds no orphaned secrets.
func (s *AccountService) Add(ctx context.Context, id domain.AccountID, name, username, password string) (domain.Account, error) {
	if strings.TrimSpace(string(id)) == "" {
		return domain.Account{}, errors.New("account id must not be empty")
	}
	if username == "" || password == "" {
		return domain.Account{}, errors.New("username and password must not be empty")
	}
	if _, err := s.accounts.GetByID(ctx, id); err == nil {
		return domain.Account{}, fmt.Errorf("account %s already exists", id)
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return domain.Account{}, fmt.Errorf("check account: %w", err)
	}
	if name == "" {
		name = username
	}

	ref := s.creds.Ref(id)
	if err := s.creds.Put(ctx, ref, username+"\n"+password); err != nil {
		return domain.Account{}, fmt.Errorf("store credential: %w", err)
	}

	now := s.clock.Now().UTC()
	account := domain.Account{
		ID:            id,
		Name:          name,
		CredentialRef: ref,
		Quota:         domain.NewQuotaState(now),
	}
	if err := s.accounts.Save(ctx, account); err != nil {
		_ = s.creds.Delete(ctx, ref)
		return domain.Account{}, fmt.Errorf("save account: %w", err)
	}
	return account, nil
}

func (s *AccountService) Get(ctx context.Context, id domain.AccountID) (domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// Remove deletes the account record together with its credential and any
// persisted session. Credential and session cleanup failures are reported
// but do not resurrect the record.
func (s *AccountService) Remove(ctx context.Context, id domain.AccountID) error {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	var cleanup []string
	if err := s.creds.Delete(ctx, account.CredentialRef); err != nil {
		cleanup = append(cleanup, fmt.Sprintf("credential: %v", err))
	}
	if err := s.sessions.Delete(ctx, id); err != nil {
		cleanup = append(cleanup, fmt.Sprintf("session: %v", err))
	}
	if len(cleanup) > 0 {
		return fmt.Errorf("account removed, cleanup incomplete: %s", strings.Join(cleanup, "; "))
	}
	return nil
}

// CredentialsFor resolves the stored login credential for the account.
func (s *AccountService) CredentialsFor(ctx context.Context, id domain.AccountID) (ports.Credentials, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if err != nil {
		return ports.Credentials{}, err
	}

	secret, err := s.creds.Get(ctx, account.CredentialRef)
	if err != nil {
		return ports.Credentials{}, fmt.Errorf("read credential for %s: %w", id, err)
	}

	username, password, ok := strings.Cut(secret, "\n")
	if !ok {
		return ports.Credentials{}, fmt.Errorf("credential for %s has an unexpected shape", id)
	}
	return ports.Credentials{Username: username, Password: password}, nil
}
