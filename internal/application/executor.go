package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	"github.com/google/uuid"
)

const (
	AbortReasonCancelled  = "cancelled"
	AbortReasonAuthFailed = "authentication failed"
	AbortReasonUnexpected = "unexpected error"
)

// ProgressFunc is invoked after each processed target with the number of
// targets handled so far, the batch total, and the pause chosen before the
// next action (zero on the last target).
type ProgressFunc func(completed, total int, nextDelay time.Duration)

// Batch is one ordered, single-kind target list for one account. Order is
// processing order; nothing reorders it.
type Batch struct {
	ID          string
	AccountID   domain.AccountID
	Kind        domain.ActionKind
	Targets     []string
	Credentials ports.Credentials
}

func NewBatch(accountID domain.AccountID, kind domain.ActionKind, targets []string, creds ports.Credentials) Batch {
	return Batch{
		ID:          uuid.NewString(),
		AccountID:   accountID,
		Kind:        kind,
		Targets:     targets,
		Credentials: creds,
	}
}

type BatchResult struct {
	BatchID   string
	AccountID domain.AccountID
	Kind      domain.ActionKind
	Status    domain.BatchStatus
	Reason    string
	Results   []domain.ActionResult
}

func (r BatchResult) CountOf(outcome domain.Outcome) int {
	n := 0
	for _, result := range r.Results {
		if result.Outcome == outcome {
			n++
		}
	}
	return n
}

func (r BatchResult) FailureCount() int {
	return r.CountOf(domain.OutcomeSoftFailed) + r.CountOf(domain.OutcomeHardFailed)
}

type settingsSource interface {
	For(ctx context.Context, id domain.AccountID) (domain.Settings, error)
}

// Executor processes one batch at a time for one account: admit via the rate
// limiter, act via the platform client, classify, record, pace. Per-target
// errors never abort the batch; authentication errors abort only this
// account's batch.
type Executor struct {
	limiter  *RateLimiter
	sessions *SessionManager
	client   ports.PlatformClient
	quotas   ports.QuotaStore
	audit    ports.AuditLog
	notifier ports.Notifier
	settings settingsSource
	clock    ports.Clock
	sleeper  ports.Sleeper
	log      *slog.Logger

	// hourJitter spreads wakeups after an hourly suspension so accounts do
	// not all resume on the exact boundary.
	hourJitter func() time.Duration
}

func NewExecutor(
	limiter *RateLimiter,
	sessions *SessionManager,
	client ports.PlatformClient,
	quotas ports.QuotaStore,
	audit ports.AuditLog,
	notifier ports.Notifier,
	settings settingsSource,
	clock ports.Clock,
	sleeper ports.Sleeper,
	log *slog.Logger,
) *Executor {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if sleeper == nil {
		sleeper = ports.TimerSleeper{}
	}
	if log == nil {
		log = slog.Default()
	}

	return &Executor{
		limiter:  limiter,
		sessions: sessions,
		client:   client,
		quotas:   quotas,
		audit:    audit,
		notifier: notifier,
		settings: settings,
		clock:    clock,
		sleeper:  sleeper,
		log:      log,
		hourJitter: func() time.Duration {
			return time.Duration(rand.IntN(30)+1) * time.Second
		},
	}
}

// Run processes the batch to a terminal status. It always returns a result;
// the error cases are folded into Status/Reason so callers see one shape.
func (e *Executor) Run(ctx context.Context, batch Batch, progress ProgressFunc) BatchResult {
	result := BatchResult{
		BatchID:   batch.ID,
		AccountID: batch.AccountID,
		Kind:      batch.Kind,
		Status:    domain.BatchCompleted,
	}

	if !batch.Kind.Valid() {
		result.Status = domain.BatchAborted
		result.Reason = fmt.Sprintf("invalid action kind %q", batch.Kind)
		return result
	}

	settings, err := e.settings.For(ctx, batch.AccountID)
	if err != nil {
		return e.abort(ctx, batch, result, 0, AbortReasonUnexpected, fmt.Sprintf("load settings: %v", err))
	}

	total := len(batch.Targets)
	retriedAuth := make(map[int]bool)

	i := 0
	for i < total {
		target := batch.Targets[i]

		if ctx.Err() != nil {
			return e.abort(ctx, batch, result, i, AbortReasonCancelled, "cancelled by operator")
		}

		decision, err := e.limiter.Admit(ctx, batch.AccountID, batch.Kind, e.clock.Now(), settings)
		if err != nil {
			return e.abort(ctx, batch, result, i, AbortReasonUnexpected, fmt.Sprintf("quota check: %v", err))
		}

		switch decision {
		case ports.QuotaDailyExceeded:
			// The daily cap will not open again this run: skip everything
			// left and complete the batch.
			e.recordError(ctx, batch, "daily limit", fmt.Sprintf("daily %s limit reached, skipping %d target(s)", batch.Kind, total-i))
			e.notify(ctx, fmt.Sprintf("daily limit reached for %s", batch.AccountID),
				fmt.Sprintf("Daily %s limit reached; %d of %d targets skipped.", batch.Kind, total-i, total))
			e.skipFrom(ctx, batch, &result, i, "daily limit reached")
			return result
		case ports.QuotaHourlyExceeded:
			// Temporary: the cap opens at the next hour boundary.
			if err := e.suspendUntilNextHour(ctx, batch.AccountID); err != nil {
				return e.abort(ctx, batch, result, i, AbortReasonCancelled, "cancelled during hourly suspension")
			}
			continue
		}

		session, err := e.sessions.GetLiveSession(ctx, batch.AccountID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotAuthenticated) {
				if ctx.Err() != nil {
					return e.abort(ctx, batch, result, i, AbortReasonCancelled, "cancelled by operator")
				}
				return e.abort(ctx, batch, result, i, AbortReasonUnexpected, fmt.Sprintf("get session: %v", err))
			}

			state, loginErr := e.sessions.Login(ctx, batch.AccountID, batch.Credentials)
			if state != domain.SessionAuthenticated {
				detail := fmt.Sprintf("login ended in state %s", state)
				if loginErr != nil {
					detail = fmt.Sprintf("%s: %v", detail, loginErr)
				}
				e.notify(ctx, fmt.Sprintf("authentication failed for %s", batch.AccountID), detail)
				return e.abort(ctx, batch, result, i, AbortReasonAuthFailed, detail)
			}

			session, err = e.sessions.GetLiveSession(ctx, batch.AccountID)
			if err != nil {
				return e.abort(ctx, batch, result, i, AbortReasonUnexpected, fmt.Sprintf("get session after login: %v", err))
			}
		}

		actErr := e.perform(ctx, session, batch.Kind, target)
		switch kind := domain.KindOf(actErr); {
		case actErr == nil:
			if err := e.quotas.Commit(ctx, batch.AccountID, batch.Kind); err != nil {
				e.log.Error("quota commit failed", "account", batch.AccountID, "err", err)
				e.recordError(ctx, batch, "quota commit", err.Error())
			}
			e.recordResult(ctx, batch, &result, target, domain.OutcomeSucceeded, "")

		case kind == domain.KindSessionInvalidated:
			e.recordError(ctx, batch, "session invalidated", actErr.Error())
			if invErr := e.sessions.Invalidate(ctx, batch.AccountID, actErr.Error()); invErr != nil {
				// The stale blob is still on disk and a re-login would adopt
				// it again, so the retry is pointless.
				e.log.Error("session invalidate failed", "account", batch.AccountID, "err", invErr)
				e.recordResult(ctx, batch, &result, target, domain.OutcomeSoftFailed, actErr.Error())
				e.notify(ctx, fmt.Sprintf("session lost for %s", batch.AccountID), actErr.Error())
				return e.abort(ctx, batch, result, i+1, AbortReasonAuthFailed, fmt.Sprintf("clear invalidated session: %v", invErr))
			}

			state, _ := e.sessions.Login(ctx, batch.AccountID, batch.Credentials)
			if state == domain.SessionAuthenticated && !retriedAuth[i] {
				retriedAuth[i] = true
				continue // one retry of the same target
			}

			detail := "re-login after session loss did not authenticate"
			if state == domain.SessionAuthenticated {
				detail = "session lost again on the retried target"
			}
			e.recordResult(ctx, batch, &result, target, domain.OutcomeSoftFailed, actErr.Error())
			e.notify(ctx, fmt.Sprintf("session lost for %s", batch.AccountID), actErr.Error())
			return e.abort(ctx, batch, result, i+1, AbortReasonAuthFailed, detail)

		case kind == domain.KindTransientNetwork:
			e.recordResult(ctx, batch, &result, target, domain.OutcomeSoftFailed, actErr.Error())
			e.recordError(ctx, batch, "transient error", actErr.Error())
			e.notify(ctx, fmt.Sprintf("transient error for %s", batch.AccountID), actErr.Error())

		case kind == domain.KindTargetNotFound, kind == domain.KindPlatformRejected:
			e.recordResult(ctx, batch, &result, target, domain.OutcomeHardFailed, actErr.Error())
			e.recordError(ctx, batch, "platform rejection", actErr.Error())
			e.notify(ctx, fmt.Sprintf("action rejected for %s", batch.AccountID), actErr.Error())

		default:
			// Untranslated failure: nothing above the client boundary knows
			// how to handle it, stop this account.
			e.recordResult(ctx, batch, &result, target, domain.OutcomeHardFailed, actErr.Error())
			e.notify(ctx, fmt.Sprintf("unexpected error for %s", batch.AccountID), actErr.Error())
			return e.abort(ctx, batch, result, i+1, AbortReasonUnexpected, actErr.Error())
		}

		i++

		var delay time.Duration
		if i < total {
			delay = e.limiter.NextDelay(batch.Kind, settings)
		}
		if progress != nil {
			progress(i, total, delay)
		}
		if i < total {
			if err := e.sleeper.Sleep(ctx, delay); err != nil {
				return e.abort(ctx, batch, result, i, AbortReasonCancelled, "cancelled during pacing delay")
			}
		}
	}

	e.log.Info("batch completed",
		"account", batch.AccountID, "batch", batch.ID, "kind", batch.Kind,
		"succeeded", result.CountOf(domain.OutcomeSucceeded), "failed", result.FailureCount(),
		"skipped", result.CountOf(domain.OutcomeSkipped))
	return result
}

func (e *Executor) perform(ctx context.Context, session domain.Session, kind domain.ActionKind, target string) error {
	userID, err := e.client.ResolveUserID(ctx, session, target)
	if err != nil {
		return err
	}

	if kind == domain.ActionUnfollow {
		return e.client.Unfollow(ctx, session, userID)
	}
	return e.client.Follow(ctx, session, userID)
}

func (e *Executor) suspendUntilNextHour(ctx context.Context, id domain.AccountID) error {
	now := e.clock.Now().UTC()
	boundary := now.Truncate(time.Hour).Add(time.Hour)
	wait := boundary.Sub(now) + e.hourJitter()

	e.log.Info("hourly cap reached, suspending", "account", id, "until", boundary, "wait", wait)
	return e.sleeper.Sleep(ctx, wait)
}

func (e *Executor) abort(ctx context.Context, batch Batch, result BatchResult, from int, reason, detail string) BatchResult {
	// The trigger may be the cancellation itself; the terminal audit rows
	// still have to land in the durable log.
	ctx = context.WithoutCancel(ctx)

	result.Status = domain.BatchAborted
	result.Reason = reason
	e.recordError(ctx, batch, "batch aborted", detail)
	e.skipFrom(ctx, batch, &result, from, "batch aborted: "+reason)
	e.log.Warn("batch aborted", "account", batch.AccountID, "batch", batch.ID, "reason", reason, "detail", detail)
	return result
}

func (e *Executor) skipFrom(ctx context.Context, batch Batch, result *BatchResult, from int, detail string) {
	for _, target := range batch.Targets[from:] {
		e.recordResult(ctx, batch, result, target, domain.OutcomeSkipped, detail)
	}
}

func (e *Executor) recordResult(ctx context.Context, batch Batch, result *BatchResult, target string, outcome domain.Outcome, detail string) {
	actionResult := domain.ActionResult{
		Target:    target,
		Kind:      batch.Kind,
		Outcome:   outcome,
		Timestamp: e.clock.Now().UTC(),
		Detail:    detail,
	}
	result.Results = append(result.Results, actionResult)

	err := e.audit.RecordAction(ctx, domain.AuditAction{
		Timestamp: actionResult.Timestamp,
		AccountID: batch.AccountID,
		BatchID:   batch.ID,
		Kind:      batch.Kind,
		Outcome:   outcome,
		Target:    target,
		Detail:    detail,
	})
	if err != nil {
		e.log.Error("audit write failed", "account", batch.AccountID, "err", err)
	}
}

func (e *Executor) recordError(ctx context.Context, batch Batch, errContext, detail string) {
	err := e.audit.RecordError(ctx, domain.AuditError{
		Timestamp: e.clock.Now().UTC(),
		AccountID: batch.AccountID,
		BatchID:   batch.ID,
		Context:   errContext,
		Detail:    detail,
	})
	if err != nil {
		e.log.Error("audit write failed", "account", batch.AccountID, "err", err)
	}
}

// notify is best-effort: delivery failures are logged and never propagate.
func (e *Executor) notify(ctx context.Context, subject, body string) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Notify(ctx, subject, body); err != nil {
		e.log.Warn("notification failed", "subject", subject, "err", err)
	}
}
