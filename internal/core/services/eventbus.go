package services

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/manthysbr/seao/internal/core/domain"
)

type EventType string

const (
	// EventTypeStatus carries every stage transition.
	EventTypeStatus EventType = "status"
	// EventTypeDone is published once, after the job reached a terminal status.
	EventTypeDone EventType = "done"
)

type Event struct {
	JobID     domain.JobID
	Type      EventType
	Status    domain.JobStatus
	Data      string // JSON payload
	Timestamp int64
}

// statusPayload is the JSON body of status and done events.
type statusPayload struct {
	Status   domain.JobStatus `json:"status"`
	Progress int              `json:"progress"`
	Error    string           `json:"error,omitempty"`
}

// NewStatusEvent builds the event published for a job snapshot.
func NewStatusEvent(typ EventType, job domain.Job, now time.Time) Event {
	data, err := json.Marshal(statusPayload{Status: job.Status, Progress: job.Progress, Error: job.Error})
	if err != nil {
		data = []byte(`{"status":"` + string(job.Status) + `"}`)
	}
	return Event{
		JobID:     job.ID,
		Type:      typ,
		Status:    job.Status,
		Data:      string(data),
		Timestamp: now.Unix(),
	}
}

// EventBus fans job events out to per-job subscribers (SSE streams).
type EventBus struct {
	logger *slog.Logger
	mu     sync.RWMutex
	subs   map[domain.JobID][]chan Event
}

func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		logger: logger,
		subs:   make(map[domain.JobID][]chan Event),
	}
}

// Subscribe returns a channel that receives events for a specific job
func (b *EventBus) Subscribe(jobID domain.JobID) (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, 16)
	b.subs[jobID] = append(b.subs[jobID], ch)

	var once sync.Once
	unsub := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subscribers := b.subs[jobID]
			for i, sub := range subscribers {
				if sub == ch {
					close(ch)
					b.subs[jobID] = append(subscribers[:i], subscribers[i+1:]...)
					break
				}
			}
			if len(b.subs[jobID]) == 0 {
				delete(b.subs, jobID)
			}
		})
	}

	return ch, unsub
}

// Publish sends an event to all subscribers of the job without blocking.
func (b *EventBus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[e.JobID] {
		select {
		case ch <- e:
		default:
			b.logger.Warn("event bus channel full, dropping event", "job_id", e.JobID, "type", e.Type)
		}
	}
}

// Subscribers returns the number of live subscriptions for a job.
func (b *EventBus) Subscribers(jobID domain.JobID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[jobID])
}
