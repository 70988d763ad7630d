package errors

import "errors"

var (
	ErrSnapshotNotFound = errors.New("resource snapshot not found")
)
