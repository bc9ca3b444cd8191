package worker

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genbridge/genbridge/internal/domain"
	"github.com/genbridge/genbridge/internal/platform/logger"
	"github.com/genbridge/genbridge/internal/provider"
)

func newTestWorker(t *testing.T, tasks *fakeTaskStore, prov *fakeProvider) *Worker {
	t.Helper()

	exec, _ := newTestExecutor(t, tasks, prov, nil)
	metrics := NewMetrics(prometheus.NewRegistry())

	return NewWorker(tasks, exec, 5*time.Millisecond, logger.Setup("error"), metrics)
}

// runUntil drives the loop in the background until cond holds, then
// cancels it.
func runUntil(t *testing.T, w *Worker, cond func() bool) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatal("condition not reached before deadline")
		}
		time.Sleep(2 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker loop did not stop after cancellation")
	}
}

func TestRunProcessesQueuedTasksInOrder(t *testing.T) {
	tasks := newFakeTaskStore()
	first := seedTask(t, tasks, "chat", "one", "")
	second := seedTask(t, tasks, "chat", "two", "")

	prov := &fakeProvider{
		pollResult: provider.Result{
			Status:  provider.StatusSuccess,
			Payload: map[string]any{"status": "success", "text": "generated reply"},
		},
	}

	w := newTestWorker(t, tasks, prov)
	runUntil(t, w, func() bool {
		return tasks.mustGet(t, second.ID).Status.IsTerminal()
	})

	for _, task := range []*domain.Task{first, second} {
		got := tasks.mustGet(t, task.ID)
		assert.Equal(t, domain.TaskStatusSuccess, got.Status)
		assert.Equal(t, "generated reply", got.ResultText)
	}
	assert.Equal(t, 2, prov.submitCount())
}

func TestRunRecordsFailureAndKeepsGoing(t *testing.T) {
	tasks := newFakeTaskStore()
	failing := seedTask(t, tasks, "no-such-preset", "boom", "")
	healthy := seedTask(t, tasks, "chat", "hello", "")

	prov := &fakeProvider{
		pollResult: provider.Result{
			Status:  provider.StatusSuccess,
			Payload: map[string]any{"status": "success", "text": "still alive"},
		},
	}

	w := newTestWorker(t, tasks, prov)
	runUntil(t, w, func() bool {
		return tasks.mustGet(t, healthy.ID).Status.IsTerminal()
	})

	failed := tasks.mustGet(t, failing.ID)
	assert.Equal(t, domain.TaskStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "unknown preset")

	ok := tasks.mustGet(t, healthy.ID)
	assert.Equal(t, domain.TaskStatusSuccess, ok.Status)
}

func TestRunSurvivesExecutorPanic(t *testing.T) {
	tasks := newFakeTaskStore()
	victim := seedTask(t, tasks, "chat", "panic please", "")
	healthy := seedTask(t, tasks, "chat", "hello", "")

	prov := &panickyProvider{
		panicOnFirst: true,
		inner: &fakeProvider{
			pollResult: provider.Result{
				Status:  provider.StatusSuccess,
				Payload: map[string]any{"status": "success", "text": "survived the panic"},
			},
		},
	}

	exec, _ := newTestExecutor(t, tasks, nil, nil)
	exec.provider = prov
	metrics := NewMetrics(prometheus.NewRegistry())
	w := NewWorker(tasks, exec, 5*time.Millisecond, logger.Setup("error"), metrics)

	runUntil(t, w, func() bool {
		return tasks.mustGet(t, healthy.ID).Status.IsTerminal()
	})

	failed := tasks.mustGet(t, victim.ID)
	assert.Equal(t, domain.TaskStatusFailed, failed.Status)
	assert.Contains(t, failed.ErrorMessage, "internal error")

	ok := tasks.mustGet(t, healthy.ID)
	assert.Equal(t, domain.TaskStatusSuccess, ok.Status)
}

func TestRunStopsOnCancellation(t *testing.T) {
	tasks := newFakeTaskStore()
	w := newTestWorker(t, tasks, &fakeProvider{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker loop did not stop after cancellation")
	}
}

// panickyProvider panics on the first submission and delegates to the
// inner fake afterwards.
type panickyProvider struct {
	panicOnFirst bool
	inner        *fakeProvider
}

func (p *panickyProvider) Submit(ctx context.Context, req provider.Request) (int64, error) {
	if p.panicOnFirst {
		p.panicOnFirst = false
		panic("synthetic executor panic")
	}
	return p.inner.Submit(ctx, req)
}

func (p *panickyProvider) Poll(ctx context.Context, id int64) (provider.Result, error) {
	return p.inner.Poll(ctx, id)
}

func (p *panickyProvider) Download(ctx context.Context, url string, d time.Duration) ([]byte, error) {
	return p.inner.Download(ctx, url, d)
}
