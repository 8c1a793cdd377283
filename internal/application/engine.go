package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/PreboozedGoose/Vulture/internal/domain"
)

// Engine fans batches out to per-account workers. At most one batch runs per
// account at a time; batches for different accounts run concurrently and
// share nothing but the stores behind the executor's ports.
type Engine struct {
	executor *Executor
	log      *slog.Logger

	mu      sync.Mutex
	running map[domain.AccountID]context.CancelFunc
	wg      sync.WaitGroup
}

func NewEngine(executor *Executor, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		executor: executor,
		log:      log,
		running:  make(map[domain.AccountID]context.CancelFunc),
	}
}

// Submit starts the batch on its own worker and returns a channel that yields
// the terminal result exactly once. A second batch for an account whose
// worker is still running is refused with ErrBatchRunning.
func (e *Engine) Submit(ctx context.Context, batch Batch, progress ProgressFunc) (<-chan BatchResult, error) {
	e.mu.Lock()
	if _, busy := e.running[batch.AccountID]; busy {
		e.mu.Unlock()
		return nil, fmt.Errorf("account %s: %w", batch.AccountID, domain.ErrBatchRunning)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	e.running[batch.AccountID] = cancel
	e.mu.Unlock()

	done := make(chan BatchResult, 1)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer func() {
			cancel()
			e.mu.Lock()
			delete(e.running, batch.AccountID)
			e.mu.Unlock()
		}()

		e.log.Info("batch started", "account", batch.AccountID, "batch", batch.ID,
			"kind", batch.Kind, "targets", len(batch.Targets))
		done <- e.executor.Run(workerCtx, batch, progress)
	}()

	return done, nil
}

// Cancel requests a stop for the account's running batch, if any. The worker
// winds down through its normal abort path; Cancel does not wait for it.
func (e *Engine) Cancel(id domain.AccountID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	cancel, ok := e.running[id]
	if !ok {
		return false
	}
	cancel()
	return true
}

// CancelAll signals every running worker.
func (e *Engine) CancelAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, cancel := range e.running {
		cancel()
	}
}

// Running reports whether the account currently has a worker.
func (e *Engine) Running(id domain.AccountID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.running[id]
	return ok
}

// Wait blocks until every submitted batch has reached a terminal result.
func (e *Engine) Wait() {
	e.wg.Wait()
}
