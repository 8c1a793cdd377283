// Package csv appends audit records to monthly CSV files, one row per
// processed target and one per error event. The layout matches what external
// reporting already consumes: actions_YYYY-MM.csv and errors_YYYY-MM.csv with
// a header row, UTC timestamps, stable column order.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	"github.com/gofrs/flock"
)

const (
	logsDirMode = 0o700
	logFileMode = 0o600
	monthLayout = "2006-01"
)

var (
	actionHeader = []string{"timestamp", "account", "batch", "kind", "outcome", "target", "detail"}
	errorHeader  = []string{"timestamp", "account", "batch", "context", "detail"}
)

// Log serializes physical appends with an in-process mutex plus a flock on
// the logs directory, so concurrent account workers and concurrent processes
// never interleave rows.
type Log struct {
	root  string
	clock ports.Clock
	mu    sync.Mutex
	lock  *flock.Flock
}

var (
	_ ports.AuditLog    = (*Log)(nil)
	_ ports.AuditReader = (*Log)(nil)
)

func NewLog(root string, clock ports.Clock) *Log {
	if clock == nil {
		clock = ports.SystemClock{}
	}

	root = filepath.Clean(root)
	return &Log{
		root:  root,
		clock: clock,
		lock:  flock.New(filepath.Join(root, ".audit.lock")),
	}
}

func (l *Log) RecordAction(ctx context.Context, action domain.AuditAction) error {
	ts := action.Timestamp
	if ts.IsZero() {
		ts = l.clock.Now()
	}
	ts = ts.UTC()

	row := []string{
		ts.Format(time.RFC3339),
		string(action.AccountID),
		action.BatchID,
		string(action.Kind),
		string(action.Outcome),
		action.Target,
		action.Detail,
	}

	return l.append(ctx, "actions", ts, actionHeader, row)
}

func (l *Log) RecordError(ctx context.Context, event domain.AuditError) error {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = l.clock.Now()
	}
	ts = ts.UTC()

	row := []string{
		ts.Format(time.RFC3339),
		string(event.AccountID),
		event.BatchID,
		event.Context,
		event.Detail,
	}

	return l.append(ctx, "errors", ts, errorHeader, row)
}

func (l *Log) append(ctx context.Context, prefix string, ts time.Time, header, row []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.root, logsDirMode); err != nil {
		return fmt.Errorf("create logs directory: %w", err)
	}

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("lock audit log: %w", err)
	}
	defer func() { _ = l.lock.Unlock() }()

	path := filepath.Join(l.root, fmt.Sprintf("%s_%s.csv", prefix, ts.Format(monthLayout)))

	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, logFileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := csv.NewWriter(file)
	if fresh {
		if err := writer.Write(header); err != nil {
			return fmt.Errorf("write audit header: %w", err)
		}
	}
	if err := writer.Write(row); err != nil {
		return fmt.Errorf("write audit row: %w", err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush audit row: %w", err)
	}

	return file.Close()
}

func (l *Log) ActionsSince(ctx context.Context, since time.Time) ([]domain.AuditAction, error) {
	rows, err := l.readSince(ctx, "actions", since, len(actionHeader))
	if err != nil {
		return nil, err
	}

	actions := make([]domain.AuditAction, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			continue
		}
		if ts.Before(since) {
			continue
		}
		actions = append(actions, domain.AuditAction{
			Timestamp: ts.UTC(),
			AccountID: domain.AccountID(row[1]),
			BatchID:   row[2],
			Kind:      domain.ActionKind(row[3]),
			Outcome:   domain.Outcome(row[4]),
			Target:    row[5],
			Detail:    row[6],
		})
	}

	return actions, nil
}

func (l *Log) ErrorsSince(ctx context.Context, since time.Time) ([]domain.AuditError, error) {
	rows, err := l.readSince(ctx, "errors", since, len(errorHeader))
	if err != nil {
		return nil, err
	}

	events := make([]domain.AuditError, 0, len(rows))
	for _, row := range rows {
		ts, err := time.Parse(time.RFC3339, row[0])
		if err != nil {
			continue
		}
		if ts.Before(since) {
			continue
		}
		events = append(events, domain.AuditError{
			Timestamp: ts.UTC(),
			AccountID: domain.AccountID(row[1]),
			BatchID:   row[2],
			Context:   row[3],
			Detail:    row[4],
		})
	}

	return events, nil
}

func (l *Log) readSince(ctx context.Context, prefix string, since time.Time, width int) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(l.root, prefix+"_*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob audit files: %w", err)
	}
	sort.Strings(matches)

	sinceMonth := since.UTC().Format(monthLayout)

	var rows [][]string
	for _, path := range matches {
		month := monthOfFile(path, prefix)
		if month != "" && month < sinceMonth {
			continue
		}

		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open audit file: %w", err)
		}

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = width
		records, err := reader.ReadAll()
		_ = file.Close()
		if err != nil {
			return nil, fmt.Errorf("read audit file %s: %w", filepath.Base(path), err)
		}

		for i, record := range records {
			if i == 0 {
				continue // header
			}
			rows = append(rows, record)
		}
	}

	return rows, nil
}

func monthOfFile(path, prefix string) string {
	base := filepath.Base(path)
	base = base[:len(base)-len(".csv")]
	if len(base) <= len(prefix)+1 {
		return ""
	}
	return base[len(prefix)+1:]
}
