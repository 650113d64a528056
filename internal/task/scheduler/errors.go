package scheduler

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInterval = errors.New("scheduler: interval must be > 0")
	ErrNilWork         = errors.New("scheduler: work is nil")
	ErrStopped         = errors.New("scheduler: stopped")
)

// PanicError is returned for an invocation whose Work panicked.
type PanicError struct {
	Value any
	Stack string
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }
