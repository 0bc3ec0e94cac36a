package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates the operation would violate a uniqueness invariant.
	ErrConflict = errors.New("repository: conflict")
	// ErrCodeTaken indicates another identity currently holds the same
	// challenge code. Callers regenerate and retry.
	ErrCodeTaken = errors.New("repository: code taken")
)
