package auth

import "errors"

// The closed failure taxonomy of the auth core. Every failure path returns
// one of these so callers can handle kinds exhaustively. Unknown-user and
// wrong-secret both surface as ErrInvalidCredentials; the store-level
// not-found never crosses the authentication boundary.
var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrAccountInactive    = errors.New("auth: account inactive")
	ErrInsufficientRole   = errors.New("auth: insufficient role")
	ErrTokenMalformed     = errors.New("auth: token malformed")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrSelfModification   = errors.New("auth: self-modification forbidden")
	ErrRateLimited        = errors.New("auth: rate limited")
)
