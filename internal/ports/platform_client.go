package ports

import (
	"context"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

type Credentials struct {
	Username string
	Password string
}

// PlatformClient is the boundary to the external social platform. Every
// failure it returns must be a *domain.PlatformError so callers can branch on
// the closed taxonomy instead of on transport details.
type PlatformClient interface {
	Login(ctx context.Context, creds Credentials) (domain.Session, error)
	ResolveUserID(ctx context.Context, session domain.Session, username string) (string, error)
	Follow(ctx context.Context, session domain.Session, userID string) error
	Unfollow(ctx context.Context, session domain.Session, userID string) error
}
