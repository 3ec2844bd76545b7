package store

import "errors"

var (
	// ErrRecordNotFound wraps GORM's not found error for consistency
	ErrRecordNotFound = errors.New("record not found")

	// ErrSessionAlreadyRevoked is returned by RevokeSession when the session
	// was already revoked (0 rows updated). Callers treat it as a no-op.
	ErrSessionAlreadyRevoked = errors.New("session already revoked")

	// ErrBindingExists is returned by CreateUserDevice when the device tag is
	// already bound. Callers re-read the existing binding and adopt its uid.
	ErrBindingExists = errors.New("device already bound")
)
