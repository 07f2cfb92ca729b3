package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/audience-campaigns/internal/logger"
	"github.com/unclebandit/audience-campaigns/internal/model"
	"github.com/unclebandit/audience-campaigns/internal/service"
)

func TestReconciler_RequeuesStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, logs := dispatched(t, f, 4)
	f.tasks(t)

	require.NoError(t, f.outcomes.RecordOutcome(ctx, logs[0].ID, model.StatusSent, ""))
	f.logs.Backdate(logs[0].ID, time.Hour)
	f.logs.Backdate(logs[1].ID, time.Hour)
	f.logs.Backdate(logs[2].ID, time.Hour)

	r := &service.Reconciler{
		DeliveryLogRepo: f.logs,
		Queue:           f.queue,
		TaskQueue:       taskQueue,
		StaleAfter:      15 * time.Minute,
		Log:             logger.Discard(),
	}

	n, err := r.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	requeued := map[int64]bool{}
	for _, task := range f.tasks(t) {
		requeued[task.DeliveryLogID] = true
	}
	assert.Equal(t, map[int64]bool{logs[1].ID: true, logs[2].ID: true}, requeued)

	// Touched rows are no longer stale.
	n, err = r.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	l, err := f.logs.GetByID(ctx, logs[1].ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, l.Status)
}

func TestReconciler_RespectsBatchSize(t *testing.T) {
	f := newFixture(t)
	_, logs := dispatched(t, f, 5)
	f.tasks(t)
	for _, l := range logs {
		f.logs.Backdate(l.ID, time.Hour)
	}

	r := &service.Reconciler{
		DeliveryLogRepo: f.logs,
		Queue:           f.queue,
		TaskQueue:       taskQueue,
		StaleAfter:      time.Minute,
		BatchSize:       2,
		Log:             logger.Discard(),
	}
	n, err := r.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	r := &service.Reconciler{DeliveryLogRepo: f.logs, Queue: f.queue, TaskQueue: taskQueue, StaleAfter: time.Minute, Log: logger.Discard()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
