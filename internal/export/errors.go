package export

import (
	"errors"
	"fmt"
)

// ErrNoSelection is returned when an export has no admissible files.
var ErrNoSelection = errors.New("no files selected")

// FileReadError is a per-file failure. It is rendered inline and never
// aborts the export.
type FileReadError struct {
	Path string
	Err  error
}

func (e *FileReadError) Error() string {
	return fmt.Sprintf("read %s: %v", e.Path, e.Err)
}

func (e *FileReadError) Unwrap() error { return e.Err }

// OutputWriteError means the destination could not be created or written.
type OutputWriteError struct {
	Path string
	Err  error
}

func (e *OutputWriteError) Error() string {
	return fmt.Sprintf("write output %s: %v", e.Path, e.Err)
}

func (e *OutputWriteError) Unwrap() error { return e.Err }
