package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/manthysbr/seao/internal/adapters/duckdb"
	appconfig "github.com/manthysbr/seao/internal/config"
	"github.com/manthysbr/seao/internal/core/ports"
	"github.com/manthysbr/seao/internal/core/services"
	"github.com/manthysbr/seao/pkg/kernel"
)

func main() {
	cfg, err := appconfig.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	logger.Info("starting seao kernel", "env", cfg.Env)

	if err := run(logger, cfg); err != nil {
		logger.Error("kernel stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg appconfig.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	clock := clockwork.NewRealClock()

	// Persistence is optional: without a path jobs live in memory only.
	var repo ports.JobRepository
	if cfg.DBPath != "" {
		db, err := duckdb.NewRepository(cfg.DBPath)
		if err != nil {
			return errors.Wrap(err, "failed to init repository")
		}
		defer db.Close()
		repo = db
		logger.Info("job persistence enabled", "db_path", cfg.DBPath)
	}

	// Initialize Core Services
	eventBus := services.NewEventBus(logger)
	store := services.NewJobStore(logger, clock, repo)
	stepper := services.NewStepper(logger, clock, store, eventBus)
	scheduler := services.NewJobScheduler(logger, services.SchedulerConfig{
		MaxActiveJobs: cfg.MaxActiveJobs,
		QueueSize:     cfg.QueueSize,
	})
	sessions := services.NewSessionStore(clock, cfg.SessionTTL)
	jobService := services.NewJobService(logger, clock, store, stepper, scheduler, sessions)
	heartbeat := services.NewHeartbeatService(logger, clock, store, stepper, scheduler, sessions, cfg.HeartbeatInterval)

	if err := jobService.Restore(ctx); err != nil {
		return errors.Wrap(err, "failed to restore jobs")
	}

	apiServer, err := kernel.NewServer(logger, clock, jobService, eventBus, kernel.ServerConfig{
		Development:    cfg.Development(),
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})
	if err != nil {
		return errors.Wrap(err, "failed to init api server")
	}

	handler := kernel.NewCORS(cfg.AllowedOrigins).Handler(apiServer.Handler())

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	// 1. Scheduler loop
	g.Go(func() error {
		return jobService.Run(gCtx)
	})

	// 2. Session pruning and pipeline stats
	g.Go(func() error {
		return heartbeat.Run(gCtx)
	})

	// 3. API server
	g.Go(func() error {
		logger.Info("starting api server", "addr", addr, "health", fmt.Sprintf("http://localhost:%d/api/health", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "api server failed")
		}
		return nil
	})

	// 4. Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(shutdownCtx, jobService, httpServer)
	})

	return g.Wait()
}

type jobStopper interface {
	Shutdown(ctx context.Context)
}

type serverStopper interface {
	Shutdown(ctx context.Context) error
}

// shutdown fails running jobs before draining HTTP: their done events end the
// open SSE streams that the server would otherwise wait on.
func shutdown(ctx context.Context, jobs jobStopper, srv serverStopper) error {
	jobs.Shutdown(ctx)
	return srv.Shutdown(ctx)
}
