package domain

import "time"

type SessionState string

const (
	SessionLoggedOut        SessionState = "logged_out"
	SessionAuthenticating   SessionState = "authenticating"
	SessionAuthenticated    SessionState = "authenticated"
	SessionChallengePending SessionState = "challenge_pending"
	SessionFailed           SessionState = "failed"
)

// Session is the opaque authenticated state for one account. The blob is
// whatever the platform client handed back at login; nothing outside the
// client interprets it. Validity is confirmed lazily by the next real action,
// not by an extra round trip.
type Session struct {
	AccountID      AccountID
	Blob           []byte
	LastVerifiedAt time.Time
}
