package daemon

import "errors"

var (
	ErrDaemon = errors.New("daemon error")
)
