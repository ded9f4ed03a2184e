package client

import "errors"

var (
	ErrClient     = errors.New("client error")
	ErrNotRunning = errors.New("the ownmine daemon does not seem to be running")
)
