package errors

import "errors"

var (
	ErrInvalidProfileInput = errors.New("invalid profile input")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrConflict            = errors.New("profile version conflict")
	ErrRetryExhausted      = errors.New("profile update retries exhausted")
)
