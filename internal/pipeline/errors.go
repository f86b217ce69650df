package pipeline

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is returned when the input holds no usable cues.
var ErrEmptyInput = errors.New("input has no subtitle cues")

// BatchFailure records a batch whose translation failed after all retries.
// Its cues were emitted untranslated.
type BatchFailure struct {
	Index  int
	Offset int
	Size   int
	Err    error
}

func (f *BatchFailure) Error() string {
	return fmt.Sprintf("batch %d (cues %d-%d): %v", f.Index+1, f.Offset+1, f.Offset+f.Size, f.Err)
}

func (f *BatchFailure) Unwrap() error { return f.Err }

// FatalError aborts a job: the input could not be read or parsed, or the
// output could not be written.
type FatalError struct {
	Op   string
	Path string
	Err  error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }
