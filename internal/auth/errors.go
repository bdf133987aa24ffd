package auth

import "errors"

// Sentinel errors returned by the auth core. Everything except
// ErrStoreUnavailable is a client-facing rejection; ErrStoreUnavailable is a
// transient infrastructure failure and callers should retry with backoff.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountInactive    = errors.New("auth: account is inactive")
	ErrInvalidInput       = errors.New("auth: invalid input")

	ErrMalformed    = errors.New("auth: malformed token")
	ErrBadSignature = errors.New("auth: token signature mismatch")
	ErrExpired      = errors.New("auth: token expired")
	ErrWrongType    = errors.New("auth: unexpected token type")
	ErrRevoked      = errors.New("auth: token revoked")
	ErrStale        = errors.New("auth: token version is stale")

	ErrInsufficientRole   = errors.New("auth: insufficient role")
	ErrRegistrationClosed = errors.New("auth: registration is closed")
	ErrDomainNotAllowed   = errors.New("auth: email domain not allowed")
	ErrDuplicateEmail     = errors.New("auth: email already registered")

	ErrNotFound         = errors.New("auth: not found")
	ErrStoreUnavailable = errors.New("auth: identity store unavailable")
)
