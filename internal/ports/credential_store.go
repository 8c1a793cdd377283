package ports

import "context"

// CredentialStore keeps account passwords out of the accounts file. Keys are
// the credential refs stored on accounts.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, error)
	Put(ctx context.Context, key string, value string) error
	Delete(ctx context.Context, key string) error
}
