// Package apperr holds sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidDay    = errors.New("invalid day")
	ErrInvalidMode   = errors.New("invalid date source")
	ErrLocked        = errors.New("locked")
)
