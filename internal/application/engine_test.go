package application

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/PreboozedGoose/Vulture/internal/domain"
	"github.com/PreboozedGoose/Vulture/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngineHarness(client *scriptedClient) (*Engine, *executorHarness) {
	h := newExecutorHarness(client, zeroDelaySettings())
	return NewEngine(h.executor, slog.New(slog.DiscardHandler)), h
}

func TestSubmitRunsBatchToCompletion(t *testing.T) {
	engine, h := newEngineHarness(&scriptedClient{})
	h.seedSession(t)

	batch := NewBatch(testAccount, domain.ActionFollow, []string{"a", "b"}, ports.Credentials{})
	done, err := engine.Submit(context.Background(), batch, nil)
	require.NoError(t, err)

	result := <-done
	assert.Equal(t, domain.BatchCompleted, result.Status)
	assert.Equal(t, batch.ID, result.BatchID)

	engine.Wait()
	assert.False(t, engine.Running(testAccount))
}

func TestSubmitRefusesSecondBatchForSameAccount(t *testing.T) {
	release := make(chan struct{})
	client := &scriptedClient{
		followFn: func(int, string) error {
			<-release
			return nil
		},
	}
	engine, h := newEngineHarness(client)
	h.seedSession(t)

	first, err := engine.Submit(context.Background(), NewBatch(testAccount, domain.ActionFollow, []string{"a"}, ports.Credentials{}), nil)
	require.NoError(t, err)

	// wait until the worker is registered before probing the duplicate path
	require.Eventually(t, func() bool { return engine.Running(testAccount) }, time.Second, time.Millisecond)

	_, err = engine.Submit(context.Background(), NewBatch(testAccount, domain.ActionFollow, []string{"b"}, ports.Credentials{}), nil)
	assert.ErrorIs(t, err, domain.ErrBatchRunning)

	close(release)
	<-first
	engine.Wait()

	// the slot frees up once the first batch finishes
	done, err := engine.Submit(context.Background(), NewBatch(testAccount, domain.ActionFollow, []string{"c"}, ports.Credentials{}), nil)
	require.NoError(t, err)
	<-done
}

func TestSubmitRunsAccountsConcurrently(t *testing.T) {
	var mu sync.Mutex
	inFlight := 0
	peak := 0
	client := &scriptedClient{
		followFn: func(int, string) error {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return nil
		},
	}
	engine, h := newEngineHarness(client)

	ctx := context.Background()
	for _, id := range []domain.AccountID{"one", "two"} {
		require.NoError(t, h.sessionStore.Save(ctx, domain.Session{AccountID: id, Blob: []byte("tok")}))
	}

	a, err := engine.Submit(ctx, NewBatch("one", domain.ActionFollow, []string{"x", "y"}, ports.Credentials{}), nil)
	require.NoError(t, err)
	b, err := engine.Submit(ctx, NewBatch("two", domain.ActionFollow, []string{"x", "y"}, ports.Credentials{}), nil)
	require.NoError(t, err)

	assert.Equal(t, domain.BatchCompleted, (<-a).Status)
	assert.Equal(t, domain.BatchCompleted, (<-b).Status)
	engine.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Greater(t, peak, 1, "workers for different accounts should overlap")
}

func TestCancelStopsRunningBatch(t *testing.T) {
	started := make(chan struct{})
	var once sync.Once
	client := &scriptedClient{
		followFn: func(int, string) error {
			once.Do(func() { close(started) })
			time.Sleep(5 * time.Millisecond)
			return nil
		},
	}
	engine, h := newEngineHarness(client)
	h.seedSession(t)

	targets := make([]string, 50)
	for i := range targets {
		targets[i] = "target"
	}
	done, err := engine.Submit(context.Background(), NewBatch(testAccount, domain.ActionFollow, targets, ports.Credentials{}), nil)
	require.NoError(t, err)

	<-started
	assert.True(t, engine.Cancel(testAccount))

	result := <-done
	assert.Equal(t, domain.BatchAborted, result.Status)
	assert.Equal(t, AbortReasonCancelled, result.Reason)
	assert.Positive(t, result.CountOf(domain.OutcomeSkipped))
	engine.Wait()
}

func TestCancelUnknownAccount(t *testing.T) {
	engine, _ := newEngineHarness(&scriptedClient{})
	assert.False(t, engine.Cancel("nobody"))
}
