package usecase

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrMediaUnreadable = errors.New("media unreadable")
	ErrFrameExtraction = errors.New("frame extraction failed")
)

// MediaError is fatal for a sampling run: the source could not be opened or probed.
type MediaError struct {
	Path string
	Err  error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media unreadable %q: %v", e.Path, e.Err)
}

func (e *MediaError) Unwrap() error { return e.Err }

func (e *MediaError) Is(target error) bool { return target == ErrMediaUnreadable }

// FrameError is scoped to one sample timestamp and never aborts the run.
type FrameError struct {
	Timestamp  int
	FrameIndex int64
	Err        error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("frame at %ds (index %d): %v", e.Timestamp, e.FrameIndex, e.Err)
}

func (e *FrameError) Unwrap() error { return e.Err }

func (e *FrameError) Is(target error) bool { return target == ErrFrameExtraction }

// StageError names the pipeline stage a fatal error came from.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage name carried by err, or "".
func FailedStage(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
