package services

import (
	"strconv"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/manthysbr/seao/internal/core/domain"
)

// JobIDGenerator derives job ids from the creation time in milliseconds.
// Two jobs created within the same millisecond get consecutive values, so ids
// stay unique and increasing for the life of the process.
type JobIDGenerator struct {
	clock clockwork.Clock

	mu   sync.Mutex
	last int64
}

func NewJobIDGenerator(clock clockwork.Clock) *JobIDGenerator {
	return &JobIDGenerator{clock: clock}
}

func (g *JobIDGenerator) Next() domain.JobID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.clock.Now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return domain.JobID(strconv.FormatInt(ms, 10))
}

// Observe makes the generator skip past an id issued by a previous process.
func (g *JobIDGenerator) Observe(id domain.JobID) {
	ms, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if ms > g.last {
		g.last = ms
	}
}
