package myerrors

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrVersionConflict   = errors.New("version conflict")
	ErrValidationFailed  = errors.New("validation failed")
	ErrInvalidState      = errors.New("invalid state")
	ErrAlreadySet        = errors.New("already set")

	// ErrCouplingSkipped is a warning: the dispatch write succeeded but the booking was left as is.
	ErrCouplingSkipped = errors.New("coupling skipped")
)
