package services

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/seao/internal/core/domain"
)

func TestJobScheduler_ConcurrencyLimit(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	scheduler := NewJobScheduler(logger, SchedulerConfig{MaxActiveJobs: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runningJobs int32
	var maxRunningJobs int32
	var wg sync.WaitGroup

	totalJobs := 5
	wg.Add(totalJobs)

	// Holds the slot for a bit, like a stepper run waiting on its timers.
	runner := func(ctx context.Context, id domain.JobID, done func()) {
		current := atomic.AddInt32(&runningJobs, 1)
		for {
			peak := atomic.LoadInt32(&maxRunningJobs)
			if current <= peak || atomic.CompareAndSwapInt32(&maxRunningJobs, peak, current) {
				break
			}
		}

		go func() {
			time.Sleep(50 * time.Millisecond)
			atomic.AddInt32(&runningJobs, -1)
			done()
			wg.Done()
		}()
	}

	go func() {
		_ = scheduler.Run(ctx, runner)
	}()

	for i := 0; i < totalJobs; i++ {
		require.NoError(t, scheduler.SubmitJob(ctx, domain.JobID(strconv.Itoa(i))))
	}

	wg.Wait()

	peak := atomic.LoadInt32(&maxRunningJobs)
	assert.LessOrEqual(t, peak, int32(2), "should not exceed max concurrency")
	assert.Greater(t, peak, int32(0), "should have run some jobs")
}

func TestJobScheduler_QueueFull(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	scheduler := NewJobScheduler(logger, SchedulerConfig{MaxActiveJobs: 1, QueueSize: 2})
	ctx := context.Background()

	require.NoError(t, scheduler.SubmitJob(ctx, "1"))
	require.NoError(t, scheduler.SubmitJob(ctx, "2"))
	assert.Equal(t, 2, scheduler.Pending())

	err := scheduler.SubmitJob(ctx, "3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQueueFull))
}

func TestJobScheduler_StopsOnCancel(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	scheduler := NewJobScheduler(logger, SchedulerConfig{MaxActiveJobs: 1})

	ctx, cancel := context.WithCancel(context.Background())

	// The first run never releases its slot, so the second waits on Acquire.
	started := make(chan domain.JobID, 2)
	runner := func(_ context.Context, id domain.JobID, _ func()) {
		started <- id
	}

	result := make(chan error, 1)
	go func() { result <- scheduler.Run(ctx, runner) }()

	require.NoError(t, scheduler.SubmitJob(ctx, "1"))
	require.NoError(t, scheduler.SubmitJob(ctx, "2"))
	assert.Equal(t, domain.JobID("1"), <-started)

	cancel()
	select {
	case err := <-result:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Empty(t, started)
}

func TestJobScheduler_UncappedStartsEveryJob(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	scheduler := NewJobScheduler(logger, SchedulerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// No run ever finishes: without a cap none of them may hold the others back.
	var started int32
	runner := func(_ context.Context, _ domain.JobID, _ func()) {
		atomic.AddInt32(&started, 1)
	}
	go func() { _ = scheduler.Run(ctx, runner) }()

	for i := 0; i < 100; i++ {
		require.NoError(t, scheduler.SubmitJob(ctx, domain.JobID(strconv.Itoa(i))))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&started) == 100
	}, time.Second, 5*time.Millisecond)
	assert.Zero(t, scheduler.Pending())
}
