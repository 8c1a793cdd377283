package ports

import (
	"context"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

// AuditLog is the append-only record of actions and errors. Implementations
// must serialize the physical append: workers for different accounts write
// concurrently.
type AuditLog interface {
	RecordAction(ctx context.Context, action domain.AuditAction) error
	RecordError(ctx context.Context, event domain.AuditError) error
}

// AuditReader is the reporting side of the audit log.
type AuditReader interface {
	ActionsSince(ctx context.Context, since time.Time) ([]domain.AuditAction, error)
	ErrorsSince(ctx context.Context, since time.Time) ([]domain.AuditError, error)
}
