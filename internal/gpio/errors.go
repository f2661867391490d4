package gpio

import (
	"errors"
	"fmt"
)

var (
	// ErrReleased is reported when a dead request is used.
	ErrReleased = errors.New("request already released")
	// ErrNotOwned is reported when a line is not part of the request's
	// owned set.
	ErrNotOwned = errors.New("line not owned by request")

	errEmptyConfig     = errors.New("no lines requested")
	errNegativeOffset  = errors.New("negative line offset")
	errDuplicateOffset = errors.New("duplicate line offset")
)

// AcquireError reports a failed acquisition. Offsets carries the lines of
// the failed request when known. Permission problems are detectable with
// errors.Is(err, fs.ErrPermission).
type AcquireError struct {
	Chip    string
	Offsets []int
	Err     error
}

func (e *AcquireError) Error() string {
	if len(e.Offsets) == 0 {
		return fmt.Sprintf("requesting lines on %s: %s", e.Chip, e.Err)
	}
	return fmt.Sprintf("requesting lines %v on %s: %s", e.Offsets, e.Chip, e.Err)
}

func (e *AcquireError) Unwrap() error {
	return e.Err
}

// SetValueError reports a failed write to a single line.
type SetValueError struct {
	Chip   string
	Offset int
	Err    error
}

func (e *SetValueError) Error() string {
	return fmt.Sprintf("setting line %d on %s: %s", e.Offset, e.Chip, e.Err)
}

func (e *SetValueError) Unwrap() error {
	return e.Err
}

// ReleaseError reports a failed release. The request is dead regardless.
type ReleaseError struct {
	Chip string
	Err  error
}

func (e *ReleaseError) Error() string {
	return fmt.Sprintf("releasing lines on %s: %s", e.Chip, e.Err)
}

func (e *ReleaseError) Unwrap() error {
	return e.Err
}
