package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/seao/internal/core/domain"
	"github.com/manthysbr/seao/internal/core/services"
	"github.com/manthysbr/seao/pkg/kernel"
)

type recordingStopper struct {
	name  string
	calls *[]string
}

func (r recordingStopper) Shutdown(context.Context) {
	*r.calls = append(*r.calls, r.name)
}

type recordingServer struct {
	calls *[]string
}

func (r recordingServer) Shutdown(context.Context) error {
	*r.calls = append(*r.calls, "http")
	return nil
}

func TestShutdown_StopsJobsBeforeServer(t *testing.T) {
	var calls []string
	err := shutdown(context.Background(), recordingStopper{name: "jobs", calls: &calls}, recordingServer{calls: &calls})
	require.NoError(t, err)
	assert.Equal(t, []string{"jobs", "http"}, calls)
}

func TestShutdown_DoesNotWaitForStageTimers(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	clock := clockwork.NewFakeClock()

	bus := services.NewEventBus(logger)
	store := services.NewJobStore(logger, clock, nil)
	stepper := services.NewStepper(logger, clock, store, bus)
	jobs := services.NewJobService(logger, clock, store, stepper,
		services.NewJobScheduler(logger, services.SchedulerConfig{}), services.NewSessionStore(clock, 0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = jobs.Run(ctx) }()

	api, err := kernel.NewServer(logger, clock, jobs, bus, kernel.ServerConfig{})
	require.NoError(t, err)
	ts := httptest.NewServer(api.Handler())
	defer ts.Close()

	res, err := jobs.CreateJob(ctx, services.CreateJobRequest{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))

	// An open event stream on a running job. The clock never advances, so
	// only a failed job can end it.
	resp, err := http.Get(ts.URL + "/api/scraper/events/" + string(res.Job.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
	defer stop()
	require.NoError(t, shutdown(shutdownCtx, jobs, ts.Config))

	job, err := jobs.GetJob(ctx, res.Job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
}
