package config

import "errors"

var (
	ErrConfiguration = errors.New("configuration error")
	ErrDuplicateName = errors.New("duplicate server name")
	ErrInvalid       = errors.New("invalid configuration")
)
