package errors

import "errors"

var (
	ErrInvalidLoginInput   = errors.New("invalid login input")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	ErrRegistrationFailed  = errors.New("account registration failed")
	ErrUnsupportedProvider = errors.New("unsupported identity provider")
)
