package system

import "errors"

var (
	ErrCommand = errors.New("command failed")
	ErrTimeout = errors.New("command timed out")
)
