package client

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jonboulle/clockwork"
)

const (
	DefaultPollInterval         = 2 * time.Second
	DefaultMaxConsecutiveErrors = 5
)

// Poller follows a job until it reaches a terminal status.
//
// Polls are sequential: the next one is scheduled only after the previous
// response was handled, so updates are reported in order.
type Poller struct {
	Client               *Client
	Interval             time.Duration
	MaxConsecutiveErrors int
	Clock                clockwork.Clock
}

func NewPoller(c *Client) *Poller {
	return &Poller{
		Client:               c,
		Interval:             DefaultPollInterval,
		MaxConsecutiveErrors: DefaultMaxConsecutiveErrors,
		Clock:                clockwork.NewRealClock(),
	}
}

// Wait polls jobID until it is completed or failed and returns the last view.
// onUpdate, when set, sees every successful observation. An unknown job ends
// polling at once; other errors are tolerated up to MaxConsecutiveErrors in a row.
func (p *Poller) Wait(ctx context.Context, jobID string, onUpdate func(JobStatus)) (JobStatus, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	maxErrs := p.MaxConsecutiveErrors
	if maxErrs <= 0 {
		maxErrs = DefaultMaxConsecutiveErrors
	}
	clock := p.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	var last JobStatus
	failures := 0
	for {
		st, err := p.Client.JobStatus(ctx, jobID)
		switch {
		case err == nil:
			failures = 0
			last = st
			if onUpdate != nil {
				onUpdate(st)
			}
			if st.Terminal() {
				return st, nil
			}
		case errors.Is(err, ErrNotFound):
			return last, errors.Wrapf(err, "job %s", jobID)
		case ctx.Err() != nil:
			return last, ctx.Err()
		default:
			failures++
			if failures >= maxErrs {
				return last, errors.Wrapf(err, "polling job %s failed %d times in a row", jobID, failures)
			}
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-clock.After(interval):
		}
	}
}
