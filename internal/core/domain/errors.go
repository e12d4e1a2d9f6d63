package domain

import "github.com/cockroachdb/errors"

// Sentinel errors. Wrap them with errors.Wrap to add context; the HTTP layer
// maps them to status codes with errors.Is.
var (
	ErrJobNotFound        = errors.New("job not found")
	ErrJobExists          = errors.New("job already exists")
	ErrJobTerminal        = errors.New("job already finished")
	ErrInvalidCredentials = errors.New("username and password are required")
	ErrQueueFull          = errors.New("scheduling queue full")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidCode        = errors.New("security code must be 6 digits")
)

// Failure reasons recorded on failed jobs.
const (
	ReasonCancelled = "job cancelled"
	ReasonShutdown  = "interrupted by shutdown"
	ReasonRestart   = "interrupted by restart"
)
