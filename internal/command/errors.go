package command

import (
	"errors"
	"fmt"
)

var (
	ErrCommand      = errors.New("command error")
	ErrPrecondition = errors.New("precondition failed")
)

// A check that fails a real run but is only reported in simulate-only mode.
type preconditionError struct {
	msg string
}

func (e *preconditionError) Error() string {
	return e.msg
}

func (e *preconditionError) Unwrap() error {
	return ErrPrecondition
}

// A failure raised by the dispatcher itself rather than by a handler.
type commandError struct {
	msg string
}

func commandErrorf(format string, args ...any) error {
	return &commandError{msg: fmt.Sprintf(format, args...)}
}

func (e *commandError) Error() string {
	return e.msg
}

func (e *commandError) Unwrap() error {
	return ErrCommand
}
