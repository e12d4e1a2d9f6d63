package kernel

import (
	"fmt"
	"net/http"

	"github.com/manthysbr/seao/internal/core/domain"
	"github.com/manthysbr/seao/internal/core/services"
)

// handleJobEvents streams stage transitions of one job as SSE.
// The current state is sent first, so late subscribers are not left waiting;
// the stream ends after the done event.
func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request) {
	id, err := jobIDParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	// Subscribe before the snapshot so no transition falls in between.
	ch, unsub := s.eventBus.Subscribe(id)
	defer unsub()

	job, err := s.jobs.GetJob(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	snapshot := services.NewStatusEvent(services.EventTypeStatus, job, s.clock.Now())
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", snapshot.Type, snapshot.Data)
	if job.Status.IsTerminal() {
		done := services.NewStatusEvent(services.EventTypeDone, job, s.clock.Now())
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", done.Type, done.Data)
		flusher.Flush()
		return
	}
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if staleEvent(evt, job) {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Type, evt.Data)
			flusher.Flush()
			if evt.Type == services.EventTypeDone {
				return
			}
		}
	}
}

// staleEvent reports a stage transition the snapshot already showed. It was
// buffered between Subscribe and the snapshot read. Stages only move forward,
// so anything at or before the snapshot's stage is a repeat.
func staleEvent(evt services.Event, snapshot domain.Job) bool {
	if evt.Type != services.EventTypeStatus || evt.Status == domain.JobStatusFailed {
		return false
	}
	return domain.StageIndex(evt.Status) <= domain.StageIndex(snapshot.Status)
}
