package domain

import "time"

type ActionKind string

const (
	ActionFollow   ActionKind = "follow"
	ActionUnfollow ActionKind = "unfollow"
)

func (k ActionKind) Valid() bool {
	switch k {
	case ActionFollow, ActionUnfollow:
		return true
	default:
		return false
	}
}

type Outcome string

const (
	OutcomeSucceeded  Outcome = "succeeded"
	OutcomeSoftFailed Outcome = "soft_failed"
	OutcomeHardFailed Outcome = "hard_failed"
	OutcomeSkipped    Outcome = "skipped"
)

type ActionRequest struct {
	AccountID AccountID
	Target    string
	Kind      ActionKind
}

// ActionResult is immutable once recorded.
type ActionResult struct {
	Target    string
	Kind      ActionKind
	Outcome   Outcome
	Timestamp time.Time
	Detail    string
}

type BatchStatus string

const (
	BatchCompleted BatchStatus = "completed"
	BatchAborted   BatchStatus = "aborted"
)

// AuditAction is one append-only audit row per processed target.
type AuditAction struct {
	Timestamp time.Time
	AccountID AccountID
	BatchID   string
	Kind      ActionKind
	Outcome   Outcome
	Target    string
	Detail    string
}

// AuditError is one append-only audit row per error event.
type AuditError struct {
	Timestamp time.Time
	AccountID AccountID
	BatchID   string
	Context   string
	Detail    string
}
