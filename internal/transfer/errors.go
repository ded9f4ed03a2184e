package transfer

import "errors"

var (
	ErrTransfer       = errors.New("transfer failed")
	ErrRemoteDisabled = errors.New("remote backup is not enabled")
	ErrNoLocalBackup  = errors.New("local backup path is not configured")
	ErrBackupExists   = errors.New("backup destination already exists")
)
