package kernel

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/manthysbr/seao/internal/core/services"
)

// handleStartJob serves both POST /api/scraper/start and POST /api/scraper.
func (s *Server) handleStartJob(w http.ResponseWriter, r *http.Request) {
	var body startJobRequest
	if err := decodeStartJob(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.jobs.CreateJob(r.Context(), services.CreateJobRequest{
		Username:    body.Username,
		Password:    body.Password,
		SearchTerms: body.SearchTerms,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, startJobResponse{
		Status:               "success",
		Message:              msgJobStarted,
		JobID:                string(res.Job.ID),
		SessionID:            string(res.Session.ID),
		RequiresSecurityCode: true,
	})
}

// decodeStartJob reads a JSON or url-encoded form body.
func decodeStartJob(r *http.Request, dst *startJobRequest) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		if err := r.ParseForm(); err != nil {
			return errors.Mark(errors.Wrap(err, "parse form"), errBadRequest)
		}
		dst.Username = r.PostForm.Get("username")
		dst.Password = r.PostForm.Get("password")
		dst.SearchTerms = r.PostForm["searchTerms"]
		return nil
	}

	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Mark(errors.Wrap(err, "decode body"), errBadRequest)
	}
	return nil
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Debug("status requested", "job_id", id, "status", job.Status)
	writeJSON(w, http.StatusOK, newJobStatusResponse(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := []jobSummary{}
	for sum := range s.jobs.ListJobs(r.Context()) {
		jobs = append(jobs, jobSummary{
			ID:        string(sum.ID),
			Status:    string(sum.Status),
			Progress:  sum.Progress,
			StartTime: formatTime(sum.StartTime),
		})
	}
	writeJSON(w, http.StatusOK, listJobsResponse{
		Status: "success",
		Count:  len(jobs),
		Jobs:   jobs,
	})
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	job, err := s.jobs.CancelJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newJobStatusResponse(job))
}

func (s *Server) handleVerifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, errors.Mark(errors.Wrap(err, "decode body"), errBadRequest))
		return
	}

	token, err := s.jobs.VerifyCode(r.Context(), body.session(), body.Code, body.job())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verifyCodeResponse{
		Status:  "success",
		Message: msgCodeAccepted,
		Token:   token,
	})
}
