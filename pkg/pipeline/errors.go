package pipeline

import (
	"fmt"

	"github.com/cperrin88/grabvid/pkg/errors"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindInvalidInput   ErrorKind = "invalid_input"
	KindFetchFailed    ErrorKind = "fetch_failed"
	KindDownloadFailed ErrorKind = "download_failed"
	KindInternal       ErrorKind = "internal"
)

// JobError is the only error type that crosses the pipeline boundary.
// Reason is human-readable and, for collaborator failures, carries the
// collaborator's message verbatim.
type JobError struct {
	Kind   ErrorKind
	Reason string
	JobID  string
	Err    error
}

func (e *JobError) Error() string {
	switch e.Kind {
	case KindInvalidInput:
		return "invalid input: " + e.Reason
	case KindFetchFailed:
		return "fetch failed: " + e.Reason
	case KindDownloadFailed:
		return "download failed: " + e.Reason
	default:
		return fmt.Sprintf("internal error: %s", e.Reason)
	}
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *JobError) Is(target error) bool {
	switch e.Kind {
	case KindInvalidInput:
		return target == errors.ErrInvalidInput
	case KindFetchFailed:
		return target == errors.ErrFetchFailed
	case KindDownloadFailed:
		return target == errors.ErrDownloadFailed
	case KindInternal:
		return target == errors.ErrInternal
	}
	return false
}

func invalidInput(reason string) *JobError {
	return &JobError{Kind: KindInvalidInput, Reason: reason}
}
