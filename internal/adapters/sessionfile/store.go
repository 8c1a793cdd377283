// Package sessionfile persists one opaque session blob per account under a
// private directory, one file per account id.
package sessionfile

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	storeDirMode    = 0o700
	sessionFileMode = 0o600
	sessionFileExt  = ".session"
)

type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SessionStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

type sessionSchema struct {
	AccountID      string `toml:"account_id"`
	Blob           string `toml:"blob"`
	LastVerifiedAt string `toml:"last_verified_at,omitempty"`
}

func (s *Store) Load(ctx context.Context, id domain.AccountID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	path, err := s.pathForAccount(id)
	if err != nil {
		return domain.Session{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, fmt.Errorf("read session file for %q: %w", id, err)
	}

	var schema sessionSchema
	if err := toml.Unmarshal(data, &schema); err != nil {
		return domain.Session{}, fmt.Errorf("decode session file for %q: %w", id, err)
	}

	blob, err := base64.StdEncoding.DecodeString(schema.Blob)
	if err != nil {
		return domain.Session{}, fmt.Errorf("decode session blob for %q: %w", id, err)
	}

	session := domain.Session{
		AccountID: domain.AccountID(schema.AccountID),
		Blob:      blob,
	}
	if schema.LastVerifiedAt != "" {
		parsed, err := time.Parse(time.RFC3339, schema.LastVerifiedAt)
		if err == nil {
			session.LastVerifiedAt = parsed.UTC()
		}
	}

	return session, nil
}

func (s *Store) Save(ctx context.Context, session domain.Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForAccount(session.AccountID)
	if err != nil {
		return err
	}

	schema := sessionSchema{
		AccountID: string(session.AccountID),
		Blob:      base64.StdEncoding.EncodeToString(session.Blob),
	}
	if !session.LastVerifiedAt.IsZero() {
		schema.LastVerifiedAt = session.LastVerifiedAt.UTC().Format(time.RFC3339)
	}

	data, err := toml.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode session for %q: %w", session.AccountID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	if err := os.WriteFile(path, data, sessionFileMode); err != nil {
		return fmt.Errorf("write session file for %q: %w", session.AccountID, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, id domain.AccountID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := s.pathForAccount(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete session file for %q: %w", id, err)
	}

	return nil
}

func (s *Store) pathForAccount(id domain.AccountID) (string, error) {
	trimmed := strings.TrimSpace(string(id))
	if trimmed == "" {
		return "", errors.New("account id is empty")
	}

	cleaned := filepath.Clean(trimmed)
	if cleaned != trimmed || strings.ContainsRune(cleaned, os.PathSeparator) || cleaned == "." || cleaned == ".." {
		return "", fmt.Errorf("invalid account id %q", id)
	}

	return filepath.Join(s.root, cleaned+sessionFileExt), nil
}
