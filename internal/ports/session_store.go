package ports

import (
	"context"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

// SessionStore persists one opaque session blob per account id.
type SessionStore interface {
	// Load returns domain.ErrSessionNotFound when no blob is persisted.
	Load(ctx context.Context, id domain.AccountID) (domain.Session, error)
	Save(ctx context.Context, session domain.Session) error
	Delete(ctx context.Context, id domain.AccountID) error
}
