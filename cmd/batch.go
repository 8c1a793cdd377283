package cmd

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	progressui "github.com/PreboozedGoose/Vulture/internal/adapters/render/progress"
	"github.com/PreboozedGoose/Vulture/internal/application"
	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type batchFlags struct {
	targetsFile string
	plain       bool
}

func (f *batchFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.targetsFile, "targets-file", "", "CSV file with one target username per row")
	cmd.Flags().BoolVar(&f.plain, "plain", false, "Line-based progress output instead of the live view (implied when stdout is not a terminal)")
}

// liveCapable reports whether the writer is an interactive terminal; pipes
// and redirected output get the line-based renderer.
func liveCapable(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// resolveTargets merges positional targets with the optional CSV file,
// preserving order and dropping duplicates.
func resolveTargets(args []string, targetsFile string) ([]string, error) {
	targets := append([]string(nil), args...)

	if targetsFile != "" {
		fromFile, err := readTargetsCSV(targetsFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, fromFile...)
	}

	seen := make(map[string]bool, len(targets))
	unique := targets[:0]
	for _, target := range targets {
		target = strings.TrimSpace(target)
		if target == "" || seen[target] {
			continue
		}
		seen[target] = true
		unique = append(unique, target)
	}

	if len(unique) == 0 {
		return nil, fmt.Errorf("no targets given; pass usernames as arguments or use --targets-file")
	}
	return unique, nil
}

// readTargetsCSV reads the first column of each row. Rows starting with '#'
// are comments; a leading "username" header row is tolerated.
func readTargetsCSV(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open targets file: %w", err)
	}
	defer func() { _ = file.Close() }()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse targets file %s: %w", path, err)
	}

	var targets []string
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		target := strings.TrimSpace(record[0])
		if target == "" {
			continue
		}
		if i == 0 && strings.EqualFold(target, "username") {
			continue
		}
		targets = append(targets, target)
	}
	return targets, nil
}

func runBatch(cmd *cobra.Command, app *app, kind domain.ActionKind, accountID string, args []string, flags batchFlags) error {
	targets, err := resolveTargets(args, flags.targetsFile)
	if err != nil {
		return err
	}

	id := domain.AccountID(accountID)
	creds, err := app.accounts.CredentialsFor(cmd.Context(), id)
	if err != nil {
		return err
	}

	// Ctrl-C aborts the batch; remaining targets are recorded as skipped
	// before the process exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	batch := application.NewBatch(id, kind, targets, creds)
	label := fmt.Sprintf("%sing as %s", kind, id)

	var result application.BatchResult
	if flags.plain || !liveCapable(cmd.OutOrStdout()) {
		result, err = runBatchPlain(cmd, app, ctx, batch, label)
	} else {
		result, err = runBatchLive(cmd, app, ctx, batch, label)
	}
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), progressui.Summary(result)); err != nil {
		return err
	}
	for _, action := range result.Results {
		if action.Outcome == domain.OutcomeSoftFailed || action.Outcome == domain.OutcomeHardFailed {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s\n", action.Target, action.Detail)
		}
	}

	if result.Status == domain.BatchAborted {
		return fmt.Errorf("batch aborted: %s", result.Reason)
	}
	return nil
}

func runBatchPlain(cmd *cobra.Command, app *app, ctx context.Context, batch application.Batch, label string) (application.BatchResult, error) {
	out := cmd.OutOrStdout()
	done, err := app.engine.Submit(ctx, batch, func(completed, total int, nextDelay time.Duration) {
		if nextDelay > 0 && completed < total {
			fmt.Fprintf(out, "%s: %d/%d, next action in %s\n", label, completed, total, nextDelay.Round(time.Second))
			return
		}
		fmt.Fprintf(out, "%s: %d/%d\n", label, completed, total)
	})
	if err != nil {
		return application.BatchResult{}, err
	}

	return <-done, nil
}

func runBatchLive(cmd *cobra.Command, app *app, ctx context.Context, batch application.Batch, label string) (application.BatchResult, error) {
	events := make(chan progressui.Event, len(batch.Targets)+1)
	done, err := app.engine.Submit(ctx, batch, func(completed, total int, nextDelay time.Duration) {
		select {
		case events <- progressui.Event{Completed: completed, Total: total, NextDelay: nextDelay}:
		default:
		}
	})
	if err != nil {
		return application.BatchResult{}, err
	}

	return progressui.Run(cmd.Context(), cmd.OutOrStdout(), label, len(batch.Targets), events, done)
}
