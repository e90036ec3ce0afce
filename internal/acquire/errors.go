package acquire

import (
	"errors"
	"fmt"
)

// ErrSkipped marks a table that could not be acquired for a recoverable
// reason. The run continues with the next table.
var ErrSkipped = errors.New("table skipped")

// FatalError reports a violated environment invariant such as an output path
// collision or an unreadable archive. The run must stop.
type FatalError struct {
	Op   string // What was being attempted: "create staging dir"
	Path string // Filesystem path involved, if any
	Err  error
}

func (e *FatalError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err is or wraps a *FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsSkipped reports whether err marks a skipped table.
func IsSkipped(err error) bool {
	return errors.Is(err, ErrSkipped)
}

func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrSkipped}, args...)...)
}

func fatal(op, path string, err error) error {
	return &FatalError{Op: op, Path: path, Err: err}
}
