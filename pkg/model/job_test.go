package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobState_CanTransition(t *testing.T) {
	tests := []struct {
		from, to JobState
		allowed  bool
	}{
		{JobPending, JobFetching, true},
		{JobPending, JobDownloading, true},
		{JobPending, JobFailed, true},
		{JobPending, JobReady, false},
		{JobFetching, JobDownloading, true},
		{JobFetching, JobFailed, true},
		{JobFetching, JobReady, false},
		{JobDownloading, JobReady, true},
		{JobDownloading, JobFailed, true},
		{JobDownloading, JobFetching, false},
		{JobReady, JobCleaned, true},
		{JobReady, JobFailed, false},
		{JobFailed, JobCleaned, true},
		{JobFailed, JobReady, false},
		{JobCleaned, JobPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestJobState_Predicates(t *testing.T) {
	assert.True(t, JobCleaned.IsTerminal())
	assert.False(t, JobReady.IsTerminal())

	assert.True(t, JobDownloading.HasStaging())
	assert.True(t, JobReady.HasStaging())
	assert.False(t, JobFailed.HasStaging())
	assert.False(t, JobPending.HasStaging())
}

func TestDownloadJob_Lifecycle(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	job := NewDownloadJob("id-1", "https://example.com/v", "22", start)
	assert.Equal(t, JobPending, job.State)

	require.NoError(t, job.Transition(JobFetching, start.Add(time.Second)))
	require.NoError(t, job.Transition(JobDownloading, start.Add(2*time.Second)))
	job.StagingDir = "/tmp/job"
	require.NoError(t, job.MarkReady("/tmp/job/out.mp4", start.Add(3*time.Second)))

	assert.Equal(t, JobReady, job.State)
	assert.Equal(t, "/tmp/job/out.mp4", job.ResultFilePath)
	assert.Equal(t, start.Add(3*time.Second), job.UpdatedAt)
	assert.Equal(t, start, job.CreatedAt)

	snap := job.Snapshot()
	require.NoError(t, job.Transition(JobCleaned, start.Add(4*time.Second)))
	assert.Equal(t, JobReady, snap.State, "snapshot must not follow later changes")
}

func TestDownloadJob_MarkFailedClearsStaging(t *testing.T) {
	now := time.Now()
	job := NewDownloadJob("id-2", "u", "18", now)
	require.NoError(t, job.Transition(JobDownloading, now))
	job.StagingDir = "/tmp/job"

	require.NoError(t, job.MarkFailed("boom", now))
	assert.Equal(t, JobFailed, job.State)
	assert.Equal(t, "boom", job.FailureReason)
	assert.Empty(t, job.StagingDir)
	assert.Empty(t, job.ResultFilePath)
}

func TestDownloadJob_RejectsIllegalTransition(t *testing.T) {
	job := NewDownloadJob("id-3", "u", "18", time.Now())
	err := job.MarkReady("/x", time.Now())
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, JobPending, job.State)
	assert.Empty(t, job.ResultFilePath)
}
