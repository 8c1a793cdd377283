package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound  = errors.New("account not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotAuthenticated = errors.New("account is not authenticated")
	ErrBatchRunning     = errors.New("a batch is already running for this account")
)

// ErrorKind is the closed taxonomy every platform failure is translated into
// at the client boundary. The executor only ever branches on these kinds.
type ErrorKind string

const (
	KindAuthChallenge      ErrorKind = "auth_challenge"
	KindAuthFailed         ErrorKind = "auth_failed"
	KindSessionInvalidated ErrorKind = "session_invalidated"
	KindTargetNotFound     ErrorKind = "target_not_found"
	KindPlatformRejected   ErrorKind = "platform_rejected"
	KindTransientNetwork   ErrorKind = "transient_network"
)

type PlatformError struct {
	Kind   ErrorKind
	Detail string
	Err    error
}

func (e *PlatformError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *PlatformError) Unwrap() error { return e.Err }

func NewPlatformError(kind ErrorKind, detail string, err error) *PlatformError {
	return &PlatformError{Kind: kind, Detail: detail, Err: err}
}

// KindOf extracts the taxonomy kind from err, or "" when err carries none.
func KindOf(err error) ErrorKind {
	var platformErr *PlatformError
	if errors.As(err, &platformErr) {
		return platformErr.Kind
	}
	return ""
}
