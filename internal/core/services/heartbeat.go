package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// HeartbeatService periodically drops expired security-code sessions and
// reports the load of the job pipeline.
type HeartbeatService struct {
	logger    *slog.Logger
	clock     clockwork.Clock
	store     *JobStore
	stepper   *Stepper
	scheduler *JobScheduler
	sessions  *SessionStore
	interval  time.Duration // default 1 minute
}

// HeartbeatStats is one observation of the pipeline.
type HeartbeatStats struct {
	Jobs           int
	ActiveJobs     int
	QueuedJobs     int
	OpenSessions   int
	PrunedSessions int
}

func NewHeartbeatService(
	logger *slog.Logger,
	clock clockwork.Clock,
	store *JobStore,
	stepper *Stepper,
	scheduler *JobScheduler,
	sessions *SessionStore,
	interval time.Duration,
) *HeartbeatService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &HeartbeatService{
		logger:    logger,
		clock:     clock,
		store:     store,
		stepper:   stepper,
		scheduler: scheduler,
		sessions:  sessions,
		interval:  interval,
	}
}

// Run starts the heartbeat loop. Blocks until ctx is cancelled.
func (h *HeartbeatService) Run(ctx context.Context) error {
	h.logger.Info("heartbeat service started", "interval", h.interval)
	ticker := h.clock.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("heartbeat service stopped")
			return nil
		case <-ticker.Chan():
			h.Beat()
		}
	}
}

// Beat runs a single upkeep pass.
func (h *HeartbeatService) Beat() HeartbeatStats {
	stats := HeartbeatStats{
		PrunedSessions: h.sessions.Prune(),
		OpenSessions:   h.sessions.Len(),
		Jobs:           h.store.Count(),
		ActiveJobs:     h.stepper.Active(),
		QueuedJobs:     h.scheduler.Pending(),
	}
	h.logger.Debug("heartbeat",
		"jobs", stats.Jobs,
		"active_jobs", stats.ActiveJobs,
		"queued_jobs", stats.QueuedJobs,
		"open_sessions", stats.OpenSessions,
		"pruned_sessions", stats.PrunedSessions,
	)
	return stats
}
