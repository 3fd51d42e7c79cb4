package oerror

import (
	"errors"
	"fmt"
)

type OomphError struct {
	Err  string
	wrap error
}

// New returns an OomphError formatted from the arguments passed. A %w verb in the format keeps the
// wrapped error reachable through errors.Is and errors.As.
func New(format string, args ...any) *OomphError {
	err := fmt.Errorf(format, args...)
	return &OomphError{Err: err.Error(), wrap: errors.Unwrap(err)}
}

func NewOomphError(err string) *OomphError {
	return &OomphError{Err: err}
}

func (e *OomphError) Error() string {
	return e.Err
}

func (e *OomphError) Unwrap() error {
	return e.wrap
}
