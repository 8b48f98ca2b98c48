package auth

import "errors"

var (
	// ErrKeyUnavailable means the signing or verification key could not be loaded.
	ErrKeyUnavailable = errors.New("signing key unavailable")
	// ErrTokenInvalid covers malformed tokens, bad signatures and unexpected algorithms.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired means the signature is valid but the token is past its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenKindMismatch means a token was presented in the slot of the other kind.
	ErrTokenKindMismatch = errors.New("token kind mismatch")
	// ErrRefreshInvalid means minting a new access token from a refresh token failed.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrRevoked means the token string is on the blacklist.
	ErrRevoked = errors.New("token revoked")
	// ErrNoActiveSession means logout was called without any token.
	ErrNoActiveSession = errors.New("no active session")
)
