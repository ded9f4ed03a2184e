package protocol

import "errors"

var (
	ErrProtocol = errors.New("protocol error")
	ErrTooLarge = errors.New("message too large")
)
