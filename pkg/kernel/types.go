package kernel

import (
	"github.com/cockroachdb/errors"

	"github.com/manthysbr/seao/internal/core/domain"
)

// User-facing messages. The frontend displays them verbatim.
const (
	msgJobStarted         = "Job de scraping démarré avec succès"
	msgMissingCredentials = "Le nom d'utilisateur et le mot de passe sont requis"
	msgBadRequest         = "Requête invalide"
	msgInvalidCode        = "Le code de sécurité doit contenir 6 chiffres"
	msgCodeAccepted       = "Code de sécurité vérifié"
	msgJobNotFound        = "Job non trouvé"
	msgSessionNotFound    = "Session introuvable ou expirée"
	msgJobTerminal        = "Le job est déjà terminé"
	msgQueueFull          = "Le serveur est occupé, réessayez plus tard"
	msgRateLimited        = "Trop de requêtes, réessayez plus tard"
	msgInternal           = "Une erreur est survenue sur le serveur"
)

// errBadRequest marks malformed input that is not a domain validation error.
var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

type dataResponse struct {
	Message string `json:"message"`
	Data    []int  `json:"data"`
}

type startJobRequest struct {
	Username    string   `json:"username"`
	Password    string   `json:"password"`
	SearchTerms []string `json:"searchTerms"`
}

type startJobResponse struct {
	Status               string `json:"status"`
	Message              string `json:"message"`
	JobID                string `json:"jobId"`
	SessionID            string `json:"sessionId"`
	RequiresSecurityCode bool   `json:"requiresSecurityCode"`
}

type jobStatusResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Progress  int             `json:"progress"`
	StartTime string          `json:"startTime"`
	Results   []domain.Tender `json:"results"`
	Error     string          `json:"error,omitempty"`
}

func newJobStatusResponse(job domain.Job) jobStatusResponse {
	results := job.Results
	if results == nil {
		results = []domain.Tender{}
	}
	return jobStatusResponse{
		ID:        string(job.ID),
		Status:    string(job.Status),
		Progress:  job.Progress,
		StartTime: formatTime(job.StartTime),
		Results:   results,
		Error:     job.Error,
	}
}

type jobSummary struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
	StartTime string `json:"startTime"`
}

type listJobsResponse struct {
	Status string       `json:"status"`
	Count  int          `json:"count"`
	Jobs   []jobSummary `json:"jobs"`
}

// verifyCodeRequest accepts both camelCase and the snake_case keys older
// frontends send.
type verifyCodeRequest struct {
	Code            string `json:"code"`
	SessionID       string `json:"sessionId"`
	JobID           string `json:"jobId"`
	LegacySessionID string `json:"session_id"`
	LegacyJobID     string `json:"job_id"`
}

func (r verifyCodeRequest) session() domain.SessionID {
	if r.SessionID != "" {
		return domain.SessionID(r.SessionID)
	}
	return domain.SessionID(r.LegacySessionID)
}

func (r verifyCodeRequest) job() domain.JobID {
	id := r.JobID
	if id == "" {
		id = r.LegacyJobID
	}
	// Browser clients stringify missing values.
	if id == "undefined" || id == "null" {
		return ""
	}
	return domain.JobID(id)
}

type verifyCodeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Token   string `json:"token"`
}
