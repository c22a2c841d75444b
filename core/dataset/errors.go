package dataset

import (
	"errors"
	"fmt"
)

// Configuration errors, reported before any input is read.
var (
	ErrMissingLabelRemap = errors.New("a label remap function is required")
	ErrMissingFileRemap  = errors.New("a file remap function is required for pull request datasets")
	ErrInvalidPolicy     = errors.New("invalid row policy")
)

// Data errors.
var (
	ErrUnexpectedHeader = errors.New("unexpected header")
	ErrInvalidFlag      = errors.New("IsPR must be 0 or 1")
	ErrMalformedRow     = errors.New("malformed row")
	ErrUnmappedLabel    = errors.New("label has no mapping")
	ErrEmptyFiles       = errors.New("pull request has no changed files")
	ErrTooFewRows       = errors.New("too few rows to partition")
)

// RowError ties a data error to the input line that caused it.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

func rowErr(line int, err error, format string, args ...any) error {
	return &RowError{Line: line, Err: fmt.Errorf("%w: "+format, append([]any{err}, args...)...)}
}
