package fetch

import (
	stderrors "errors"
	"fmt"
	"time"

	"github.com/cperrin88/grabvid/pkg/errors"
)

// Kind classifies a fetch failure.
type Kind string

const (
	KindTimeout  Kind = "timeout"
	KindCanceled Kind = "canceled"
	KindUpstream Kind = "upstream"
)

// Error is the only error type returned by Executor.Fetch.
type Error struct {
	Kind Kind
	URL  string
	// Detail is the collaborator's message, kept verbatim for upstream failures.
	Detail  string
	Timeout time.Duration
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("metadata fetch timed out after %s", e.Timeout)
	case KindCanceled:
		return "metadata fetch canceled"
	default:
		return fmt.Sprintf("upstream error: %s", e.Detail)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error kind.
func (e *Error) Is(target error) bool {
	switch e.Kind {
	case KindTimeout:
		return target == errors.ErrTimeout
	case KindCanceled:
		return target == errors.ErrCanceled
	case KindUpstream:
		return target == errors.ErrUpstream
	}
	return false
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	return stderrors.Is(err, errors.ErrTimeout)
}
