package job

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Denzyyyy/Youtube-clone/internal/media"
)

var (
	// ErrBadRequest is returned when a request is missing or has unusable file names.
	ErrBadRequest = errors.New("bad request")
	// ErrConflict is returned when a job for the same file is already in flight.
	ErrConflict = errors.New("job already in progress")
	// ErrShuttingDown is returned for jobs submitted after Shutdown began.
	ErrShuttingDown = errors.New("service is shutting down")
)

// StageError is the terminal error of a failed job. It names the stage the
// failure originated from and wraps the underlying cause, so errors.Is still
// matches storage and media sentinels.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Stage, describe(e.Err))
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// describe returns a one-line message for err, preferring the transcoder's
// own error text over the full command dump. The transcoder's "transcode
// failed" prefix is dropped since the stage name already says so.
func describe(err error) string {
	var ffErr *media.FFmpegError
	if errors.As(err, &ffErr) {
		return ffErr.Message()
	}
	msg := err.Error()
	if errors.Is(err, media.ErrTranscode) {
		msg = strings.TrimPrefix(msg, media.ErrTranscode.Error()+": ")
	}
	return msg
}
