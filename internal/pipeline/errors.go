package pipeline

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrRosterUnreadable aborts the run before any matching.
	ErrRosterUnreadable = eris.New("roster unreadable")
	// ErrCheckinUnreadable skips one check-in source; the run continues.
	ErrCheckinUnreadable = eris.New("check-in unreadable")
	// ErrReportWriteFailed is returned together with the full result.
	ErrReportWriteFailed = eris.New("report write failed")
)

// SourceError ties an error kind to the file that caused it.
type SourceError struct {
	Kind error
	Path string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is the error's kind.
func (e *SourceError) Is(target error) bool {
	return target == e.Kind
}

// IsFatal reports whether err stops a run without a usable result.
func IsFatal(err error) bool {
	return errors.Is(err, ErrRosterUnreadable)
}
