package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStages_TableOrder(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 7)

	want := []JobStatus{
		JobStatusInitializing,
		JobStatusLaunchingBrowser,
		JobStatusLoggingIn,
		JobStatusSearching,
		JobStatusProcessingResults,
		JobStatusDownloadingDocuments,
		JobStatusCompleted,
	}
	var total time.Duration
	for i, st := range stages {
		assert.Equal(t, want[i], st.Status)
		if i > 0 {
			assert.Greater(t, st.Progress, stages[i-1].Progress, "progress must increase")
		}
		total += st.Pause
	}
	assert.Equal(t, 100, stages[len(stages)-1].Progress)
	assert.Zero(t, stages[len(stages)-1].Pause)
	assert.Equal(t, 16*time.Second, total)

	// Callers cannot mutate the table through the copy.
	stages[0].Progress = 99
	first, ok := StageAt(0)
	require.True(t, ok)
	assert.Equal(t, 0, first.Progress)
}

func TestStageIndex(t *testing.T) {
	assert.Equal(t, 0, StageIndex(JobStatusInitializing))
	assert.Equal(t, 6, StageIndex(JobStatusCompleted))
	assert.Equal(t, -1, StageIndex(JobStatusFailed))

	_, ok := StageAt(7)
	assert.False(t, ok)
	_, ok = StageAt(-1)
	assert.False(t, ok)
}

func TestJob_AdvanceAttachesResultsOnlyAtCompletion(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	job := NewJob("1", "alice", nil, now)

	assert.Equal(t, JobStatusInitializing, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.NotNil(t, job.SearchTerms)
	assert.Empty(t, job.SearchTerms)

	for i := 1; i < 6; i++ {
		st, _ := StageAt(i)
		job.Advance(st, now.Add(time.Duration(i)*time.Second))
		assert.Nil(t, job.Results, "no results before %s", st.Status)
	}

	done, _ := StageAt(6)
	job.Advance(done, now.Add(16*time.Second))
	require.Len(t, job.Results, 2)
	assert.Equal(t, "1", job.Results[0].ID)
	assert.Equal(t, "Rénovation de bureaux administratifs", job.Results[0].Title)
	assert.Equal(t, "2", job.Results[1].ID)
	assert.Equal(t, "Fourniture de matériel informatique", job.Results[1].Title)
	assert.Equal(t, now, job.StartTime)
}

func TestJob_FailKeepsProgress(t *testing.T) {
	now := time.Now()
	job := NewJob("1", "bob", []string{"toiture"}, now)
	st, _ := StageAt(3)
	job.Advance(st, now)

	job.Fail(ReasonCancelled, now)
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 40, job.Progress)
	assert.Equal(t, ReasonCancelled, job.Error)
	assert.True(t, job.Status.IsTerminal())
}

func TestJob_CloneIsDeep(t *testing.T) {
	job := NewJob("1", "carol", []string{"a"}, time.Now())
	done, _ := StageAt(6)
	job.Advance(done, time.Now())

	cp := job.Clone()
	cp.SearchTerms[0] = "changed"
	cp.Results[0].Documents[0].Name = "changed.pdf"

	assert.Equal(t, "a", job.SearchTerms[0])
	assert.Equal(t, "Document principal.pdf", job.Results[0].Documents[0].Name)
}

func TestIsWellFormedCode(t *testing.T) {
	assert.True(t, IsWellFormedCode("123456"))
	assert.False(t, IsWellFormedCode("12345"))
	assert.False(t, IsWellFormedCode("1234567"))
	assert.False(t, IsWellFormedCode("12a456"))
	assert.False(t, IsWellFormedCode("１２３４５６"))
}
