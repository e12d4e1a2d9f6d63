package domain

import (
	"slices"
	"time"
)

type JobID string

type JobStatus string

const (
	JobStatusInitializing         JobStatus = "initializing"
	JobStatusLaunchingBrowser     JobStatus = "launching_browser"
	JobStatusLoggingIn            JobStatus = "logging_in"
	JobStatusSearching            JobStatus = "searching"
	JobStatusProcessingResults    JobStatus = "processing_results"
	JobStatusDownloadingDocuments JobStatus = "downloading_documents"
	JobStatusCompleted            JobStatus = "completed"

	// JobStatusFailed is not part of the stage table. A job only gets there
	// when it is cancelled, interrupted, or could not be scheduled.
	JobStatusFailed JobStatus = "failed"
)

// IsTerminal reports whether no further transition can happen.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Stage is one row of the scraping stage table.
type Stage struct {
	Status   JobStatus
	Progress int
	// Pause is the delay before the next stage. Zero on the terminal stage.
	Pause time.Duration
}

var stageTable = [...]Stage{
	{Status: JobStatusInitializing, Progress: 0, Pause: 2 * time.Second},
	{Status: JobStatusLaunchingBrowser, Progress: 10, Pause: 2 * time.Second},
	{Status: JobStatusLoggingIn, Progress: 20, Pause: 3 * time.Second},
	{Status: JobStatusSearching, Progress: 40, Pause: 3 * time.Second},
	{Status: JobStatusProcessingResults, Progress: 60, Pause: 3 * time.Second},
	{Status: JobStatusDownloadingDocuments, Progress: 80, Pause: 3 * time.Second},
	{Status: JobStatusCompleted, Progress: 100},
}

// Stages returns a copy of the stage table in execution order.
func Stages() []Stage {
	return slices.Clone(stageTable[:])
}

// StageAt returns the stage at index i of the table.
func StageAt(i int) (Stage, bool) {
	if i < 0 || i >= len(stageTable) {
		return Stage{}, false
	}
	return stageTable[i], true
}

// StageIndex returns the table position of status, or -1 for statuses outside the table.
func StageIndex(status JobStatus) int {
	for i, st := range stageTable {
		if st.Status == status {
			return i
		}
	}
	return -1
}

// Job is one simulated scraping run.
type Job struct {
	ID          JobID     `json:"id"`
	Username    string    `json:"username"`
	SearchTerms []string  `json:"searchTerms"`
	Status      JobStatus `json:"status"`
	Progress    int       `json:"progress"`
	StartTime   time.Time `json:"startTime"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Results     []Tender  `json:"results,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// NewJob builds a job record sitting on the first stage.
func NewJob(id JobID, username string, searchTerms []string, now time.Time) Job {
	terms := slices.Clone(searchTerms)
	if terms == nil {
		terms = []string{}
	}
	first := stageTable[0]
	return Job{
		ID:          id,
		Username:    username,
		SearchTerms: terms,
		Status:      first.Status,
		Progress:    first.Progress,
		StartTime:   now,
		UpdatedAt:   now,
	}
}

// Advance writes stage onto the job. Reaching the terminal stage attaches the
// fixture tenders, once.
func (j *Job) Advance(stage Stage, now time.Time) {
	j.Status = stage.Status
	j.Progress = stage.Progress
	j.UpdatedAt = now
	if stage.Status == JobStatusCompleted && j.Results == nil {
		j.Results = FixtureTenders()
	}
}

// Fail marks the job failed, keeping the progress of the last stage reached.
func (j *Job) Fail(reason string, now time.Time) {
	j.Status = JobStatusFailed
	j.Error = reason
	j.UpdatedAt = now
}

// Clone returns a deep copy so callers never share slices with the store.
func (j Job) Clone() Job {
	cp := j
	cp.SearchTerms = slices.Clone(j.SearchTerms)
	if j.Results != nil {
		cp.Results = make([]Tender, len(j.Results))
		for i, t := range j.Results {
			cp.Results[i] = t.Clone()
		}
	}
	return cp
}

// JobSummary is the listing view of a job.
type JobSummary struct {
	ID        JobID     `json:"id"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	StartTime time.Time `json:"startTime"`
}

func (j Job) Summary() JobSummary {
	return JobSummary{
		ID:        j.ID,
		Status:    j.Status,
		Progress:  j.Progress,
		StartTime: j.StartTime,
	}
}
