package ytdlp

import (
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"
)

// RunError is a failed yt-dlp invocation. Its message is yt-dlp's own
// diagnostic, taken verbatim from stderr.
type RunError struct {
	ExitCode int
	Message  string
	Stderr   string
	Err      error
}

func (e *RunError) Error() string {
	return e.Message
}

func (e *RunError) Unwrap() error {
	return e.Err
}

func newRunError(err error, stderr string) *RunError {
	re := &RunError{ExitCode: -1, Stderr: stderr, Err: err}
	var exitErr *exec.ExitError
	if stderrors.As(err, &exitErr) {
		re.ExitCode = exitErr.ExitCode()
	}
	re.Message = diagnostic(stderr)
	if re.Message == "" {
		if re.ExitCode >= 0 {
			re.Message = fmt.Sprintf("yt-dlp exited with status %d", re.ExitCode)
		} else {
			re.Message = fmt.Sprintf("yt-dlp failed: %v", err)
		}
	}
	return re
}

// diagnostic picks the last "ERROR:" line, or the last non-empty line when there is none.
func diagnostic(stderr string) string {
	lines := strings.Split(stderr, "\n")
	last := ""
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			return line
		}
		if last == "" {
			last = line
		}
	}
	return last
}
