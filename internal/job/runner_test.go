package job

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRunnerSubmit(t *testing.T) {
	t.Parallel()

	t.Run("successful submission", func(t *testing.T) {
		t.Parallel()

		store := newMockJobStore()
		runner := NewJobRunner(store, DefaultJobRunnerConfig(), discardLogger())

		j := newMockJob()
		require.NoError(t, runner.Submit(context.Background(), j))

		pending, err := store.GetPendingJobs(context.Background())
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, j.ID(), pending[0].ID())
	})

	t.Run("save failure is surfaced", func(t *testing.T) {
		t.Parallel()

		store := newMockJobStore()
		store.saveErr = errors.New("database down")
		runner := NewJobRunner(store, DefaultJobRunnerConfig(), discardLogger())

		err := runner.Submit(context.Background(), newMockJob())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save job")
	})

	t.Run("queue full", func(t *testing.T) {
		t.Parallel()

		store := newMockJobStore()
		config := DefaultJobRunnerConfig()
		config.QueueSize = 1
		// The runner is never started, so the queue does not drain.
		runner := NewJobRunner(store, config, discardLogger())

		require.NoError(t, runner.Submit(context.Background(), newMockJob()))

		err := runner.Submit(context.Background(), newMockJob())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue is full")
	})
}

func TestJobRunnerProcessesJobs(t *testing.T) {
	t.Parallel()

	store := newMockJobStore()
	runner := NewJobRunner(store, DefaultJobRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	j := newMockJob()
	require.NoError(t, runner.Submit(context.Background(), j))

	select {
	case <-j.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed in time")
	}

	// The status update happens after Execute returns; poll briefly.
	require.Eventually(t, func() bool {
		return store.statusOf(j.ID()) == JobStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobRunnerRecordsFailure(t *testing.T) {
	t.Parallel()

	store := newMockJobStore()
	runner := NewJobRunner(store, DefaultJobRunnerConfig(), discardLogger())

	var handledErr error
	handled := make(chan struct{})
	runner.SetErrorHandler(func(_ Job, err error) {
		handledErr = err
		close(handled)
	})

	require.NoError(t, runner.Start())
	defer runner.Stop()

	j := newMockJob()
	j.execErr = errors.New("boom")
	require.NoError(t, runner.Submit(context.Background(), j))

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("error handler was not invoked in time")
	}
	assert.ErrorContains(t, handledErr, "boom")

	require.Eventually(t, func() bool {
		return store.statusOf(j.ID()) == JobStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestJobRunnerRecover(t *testing.T) {
	t.Parallel()

	store := newMockJobStore()

	// Seed the store as if a previous process died mid-flight: one job
	// never started, one was interrupted while processing.
	pending := newMockJob()
	require.NoError(t, store.SaveJob(context.Background(), pending))

	interrupted := newMockJob()
	require.NoError(t, store.SaveJob(context.Background(), interrupted))
	require.NoError(t, store.UpdateJobStatus(
		context.Background(), interrupted.ID(), JobStatusProcessing, ""))

	runner := NewJobRunner(store, DefaultJobRunnerConfig(), discardLogger())
	require.NoError(t, runner.Start())
	defer runner.Stop()

	for _, j := range []*mockJob{pending, interrupted} {
		select {
		case <-j.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("recovered job %s was not executed in time", j.ID())
		}
	}
}
