package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
)

// Report summarizes audited activity over one window, grouped per account.
type Report struct {
	From     time.Time
	To       time.Time
	Accounts []AccountReport
	Errors   int
}

type AccountReport struct {
	AccountID domain.AccountID
	Follows   int
	Unfollows int
	Failed    int
	Skipped   int
}

func (r Report) Empty() bool {
	return len(r.Accounts) == 0 && r.Errors == 0
}

// ReportService builds activity summaries out of the audit trail and mails
// them through the notifier.
type ReportService struct {
	reader   ports.AuditReader
	notifier ports.Notifier
	clock    ports.Clock
	log      *slog.Logger
}

func NewReportService(reader ports.AuditReader, notifier ports.Notifier, clock ports.Clock, log *slog.Logger) *ReportService {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReportService{reader: reader, notifier: notifier, clock: clock, log: log}
}

// Build aggregates everything audited since from, up to now.
func (s *ReportService) Build(ctx context.Context, from time.Time) (Report, error) {
	actions, err := s.reader.ActionsSince(ctx, from)
	if err != nil {
		return Report{}, fmt.Errorf("read actions: %w", err)
	}
	errs, err := s.reader.ErrorsSince(ctx, from)
	if err != nil {
		return Report{}, fmt.Errorf("read errors: %w", err)
	}

	perAccount := make(map[domain.AccountID]*AccountReport)
	for _, action := range actions {
		ar, ok := perAccount[action.AccountID]
		if !ok {
			ar = &AccountReport{AccountID: action.AccountID}
			perAccount[action.AccountID] = ar
		}
		switch action.Outcome {
		case domain.OutcomeSucceeded:
			if action.Kind == domain.ActionFollow {
				ar.Follows++
			} else {
				ar.Unfollows++
			}
		case domain.OutcomeSoftFailed, domain.OutcomeHardFailed:
			ar.Failed++
		case domain.OutcomeSkipped:
			ar.Skipped++
		}
	}

	report := Report{From: from.UTC(), To: s.clock.Now().UTC(), Errors: len(errs)}
	for _, ar := range perAccount {
		report.Accounts = append(report.Accounts, *ar)
	}
	sort.Slice(report.Accounts, func(i, j int) bool {
		return report.Accounts[i].AccountID < report.Accounts[j].AccountID
	})
	return report, nil
}

// BuildWeekly covers the seven days up to now.
func (s *ReportService) BuildWeekly(ctx context.Context) (Report, error) {
	return s.Build(ctx, s.clock.Now().Add(-7*24*time.Hour))
}

// Render formats the report as plain text suitable for a mail body.
func (s *ReportService) Render(report Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity report %s to %s\n\n",
		report.From.Format("2006-01-02"), report.To.Format("2006-01-02"))

	if report.Empty() {
		b.WriteString("No activity recorded.\n")
		return b.String()
	}

	for _, ar := range report.Accounts {
		fmt.Fprintf(&b, "%s: %d follows, %d unfollows, %d failed, %d skipped\n",
			ar.AccountID, ar.Follows, ar.Unfollows, ar.Failed, ar.Skipped)
	}
	fmt.Fprintf(&b, "\nErrors logged: %d\n", report.Errors)
	return b.String()
}

// Send builds the weekly report and mails it.
func (s *ReportService) Send(ctx context.Context) (Report, error) {
	report, err := s.BuildWeekly(ctx)
	if err != nil {
		return Report{}, err
	}
	if err := s.notifier.Notify(ctx, "weekly activity report", s.Render(report)); err != nil {
		return report, fmt.Errorf("send report: %w", err)
	}
	return report, nil
}

// Watch sends a report on every tick until the context ends. The ticker is
// owned by the caller, which keeps scheduling policy out of the service and
// the loop testable.
func (s *ReportService) Watch(ctx context.Context, ticks <-chan time.Time) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			if _, err := s.Send(ctx); err != nil {
				s.log.Warn("scheduled report failed", "err", err)
				continue
			}
			s.log.Info("scheduled report sent")
		}
	}
}
