package kernel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/oapi-codegen/runtime"
	"golang.org/x/time/rate"

	"github.com/manthysbr/seao/internal/core/domain"
	"github.com/manthysbr/seao/internal/core/services"
)

// ServerConfig carries the HTTP-facing settings.
type ServerConfig struct {
	// Development exposes internal error details in 500 responses.
	Development bool
	// RateLimitRPS throttles job creation process-wide. Zero disables it.
	RateLimitRPS   float64
	RateLimitBurst int
}

type Server struct {
	logger   *slog.Logger
	clock    clockwork.Clock
	jobs     *services.JobService
	eventBus *services.EventBus
	limiter  *rate.Limiter // nil when job creation is not throttled
	openapi  []byte
	cfg      ServerConfig
}

func NewServer(
	logger *slog.Logger,
	clock clockwork.Clock,
	jobs *services.JobService,
	eventBus *services.EventBus,
	cfg ServerConfig,
) (*Server, error) {
	doc, err := LoadOpenAPI()
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), max(cfg.RateLimitBurst, 1))
	}

	return &Server{
		logger:   logger,
		clock:    clock,
		jobs:     jobs,
		eventBus: eventBus,
		limiter:  limiter,
		openapi:  doc,
		cfg:      cfg,
	}, nil
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Status: "error", Message: "Route non trouvée"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Status: "error", Message: "Méthode non autorisée"})
	})

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/data", s.handleData)
	r.Get("/api/openapi.json", s.handleOpenAPI)
	r.Get("/api/jobs", s.handleListJobs)

	r.With(s.rateLimit).Post("/api/scraper/start", s.handleStartJob)
	r.With(s.rateLimit).Post("/api/scraper", s.handleStartJob)
	r.Post("/api/scraper/verify-code", s.handleVerifyCode)
	r.Get("/api/scraper/status/{id}", s.handleJobStatus)
	r.Get("/api/scraper/events/{id}", s.handleJobEvents)
	r.Post("/api/scraper/{id}/cancel", s.handleCancelJob)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.logger.Debug("health check requested")
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: formatTime(s.clock.Now()),
	})
}

func (s *Server) handleData(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, dataResponse{
		Message: "Voici vos données!",
		Data:    []int{1, 2, 3},
	})
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.openapi)
}

// writeError maps domain errors onto the HTTP error envelope.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := http.StatusInternalServerError, msgInternal
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		status, msg = http.StatusBadRequest, msgMissingCredentials
	case errors.Is(err, domain.ErrInvalidCode):
		status, msg = http.StatusBadRequest, msgInvalidCode
	case errors.Is(err, errBadRequest):
		status, msg = http.StatusBadRequest, msgBadRequest
	case errors.Is(err, domain.ErrJobNotFound):
		status, msg = http.StatusNotFound, msgJobNotFound
	case errors.Is(err, domain.ErrSessionNotFound):
		status, msg = http.StatusNotFound, msgSessionNotFound
	case errors.Is(err, domain.ErrJobTerminal):
		status, msg = http.StatusConflict, msgJobTerminal
	case errors.Is(err, domain.ErrQueueFull):
		status, msg = http.StatusServiceUnavailable, msgQueueFull
	}

	resp := errorResponse{Status: "error", Message: msg}
	if status == http.StatusInternalServerError {
		s.logger.Error("unhandled error", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "error", err)
		if s.cfg.Development {
			resp.Error = err.Error()
		}
	} else {
		s.logger.Info("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeJSON(w, status, resp)
}

// jobIDParam binds the {id} path segment.
func jobIDParam(r *http.Request) (domain.JobID, error) {
	var id string
	err := runtime.BindStyledParameterWithLocation("simple", false, "id", runtime.ParamLocationPath, chi.URLParam(r, "id"), &id)
	if err != nil {
		return "", errors.Mark(errors.Wrap(err, "invalid format for parameter id"), errBadRequest)
	}
	if id == "" {
		return "", errors.Mark(errors.New("empty job id"), errBadRequest)
	}
	return domain.JobID(id), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// isoLayout matches JavaScript's Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
