package secret

import "errors"

var (
	ErrSecret      = errors.New("secret error")
	ErrKeyNotFound = errors.New("key material not found")
	ErrNotSealed   = errors.New("value is not ciphertext")
)
