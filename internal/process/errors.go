package process

import "errors"

var (
	ErrProcess            = errors.New("process error")
	ErrExecutableNotFound = errors.New("executable not found")
	ErrStillRunning       = errors.New("still running")
)
