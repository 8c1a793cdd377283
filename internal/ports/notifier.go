package ports

import "context"

// Notifier delivers operator notifications. Best-effort: callers log delivery
// failures locally and never let them propagate into batch processing.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}
