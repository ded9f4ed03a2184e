package rcon

import "errors"

var (
	ErrRemoteConsole = errors.New("remote console error")
	ErrDisabled      = errors.New("remote console is not enabled")
)
