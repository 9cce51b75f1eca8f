package model

import (
	"errors"
	"fmt"
	"time"
)

// JobState is the lifecycle state of a download job.
type JobState string

const (
	JobPending     JobState = "pending"
	JobFetching    JobState = "fetching"
	JobDownloading JobState = "downloading"
	JobReady       JobState = "ready"
	JobFailed      JobState = "failed"
	JobCleaned     JobState = "cleaned"
)

// ErrInvalidTransition is returned when a job is moved along an edge the lifecycle does not allow.
var ErrInvalidTransition = errors.New("invalid job state transition")

var jobTransitions = map[JobState][]JobState{
	JobPending:     {JobFetching, JobDownloading, JobFailed},
	JobFetching:    {JobDownloading, JobFailed},
	JobDownloading: {JobReady, JobFailed},
	JobReady:       {JobCleaned},
	JobFailed:      {JobCleaned},
}

// CanTransition reports whether moving from s to next is allowed.
func (s JobState) CanTransition(next JobState) bool {
	for _, allowed := range jobTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s JobState) IsTerminal() bool {
	return s == JobCleaned
}

// HasStaging reports whether a job in this state may own a staging directory.
func (s JobState) HasStaging() bool {
	return s == JobDownloading || s == JobReady
}

// DownloadJob tracks one fetch-then-download request.
type DownloadJob struct {
	ID             string    `json:"id"`
	SourceURL      string    `json:"source_url"`
	VariantID      string    `json:"variant_id"`
	StagingDir     string    `json:"staging_dir,omitempty"`
	State          JobState  `json:"state"`
	ResultFilePath string    `json:"result_file_path,omitempty"`
	FailureReason  string    `json:"failure_reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewDownloadJob returns a job in the Pending state.
func NewDownloadJob(id, sourceURL, variantID string, now time.Time) *DownloadJob {
	return &DownloadJob{
		ID:        id,
		SourceURL: sourceURL,
		VariantID: variantID,
		State:     JobPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the job to the next state.
func (j *DownloadJob) Transition(next JobState, now time.Time) error {
	if !j.State.CanTransition(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, j.State, next)
	}
	j.State = next
	j.UpdatedAt = now
	return nil
}

// MarkReady moves the job to Ready and records the produced file.
func (j *DownloadJob) MarkReady(path string, now time.Time) error {
	if err := j.Transition(JobReady, now); err != nil {
		return err
	}
	j.ResultFilePath = path
	return nil
}

// MarkFailed moves the job to Failed and records the reason. The staging
// directory is cleared since a failed job never owns one.
func (j *DownloadJob) MarkFailed(reason string, now time.Time) error {
	if err := j.Transition(JobFailed, now); err != nil {
		return err
	}
	j.FailureReason = reason
	j.StagingDir = ""
	return nil
}

// Snapshot returns a copy safe to hand to readers.
func (j *DownloadJob) Snapshot() DownloadJob {
	return *j
}
