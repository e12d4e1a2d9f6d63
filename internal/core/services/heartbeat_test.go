package services

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/seao/internal/core/domain"
)

func TestHeartbeat_PrunesExpiredSessions(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	clock := clockwork.NewFakeClock()
	store := NewJobStore(logger, clock, nil)
	stepper := NewStepper(logger, clock, store, NewEventBus(logger))
	scheduler := NewJobScheduler(logger, SchedulerConfig{})
	sessions := NewSessionStore(clock, time.Minute)

	require.NoError(t, store.Create(context.Background(), domain.NewJob("1", "alice", nil, clock.Now())))
	require.NoError(t, scheduler.SubmitJob(context.Background(), "1"))
	sessions.Open("1", "alice")
	sessions.Open("2", "bob")

	hb := NewHeartbeatService(logger, clock, store, stepper, scheduler, sessions, 30*time.Second)

	stats := hb.Beat()
	assert.Equal(t, HeartbeatStats{Jobs: 1, QueuedJobs: 1, OpenSessions: 2}, stats)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hb.Run(ctx) }()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Minute)
	require.Eventually(t, func() bool { return sessions.Len() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("heartbeat did not stop")
	}
}
