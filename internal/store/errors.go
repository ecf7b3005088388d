package store

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates the requested row does not exist or is not
	// visible to the requesting user.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials indicates a failed username/password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IsConflict reports whether err is a SQLite constraint violation
// (uniqueness, CHECK, NOT NULL). These surface as per-record sync failures
// rather than aborting a batch.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "constraint failed")
}
