package domain

import "time"

// TokenKind discriminates access tokens from refresh tokens inside the signed payload.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// Valid reports whether k is a known kind.
func (k TokenKind) Valid() bool {
	return k == TokenKindAccess || k == TokenKindRefresh
}

// Identity is the verified caller attached to a request after authentication.
type Identity struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// TokenPayload is the decoded content of a signed token.
type TokenPayload struct {
	Identity
	ID        string
	Kind      TokenKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the payload is past its expiry at now.
func (p TokenPayload) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}

// IssuedToken is a signed token string together with its decoded payload.
type IssuedToken struct {
	Token   string
	Payload TokenPayload
}

// TTL returns the lifetime the token was signed with.
func (t IssuedToken) TTL() time.Duration {
	return t.Payload.ExpiresAt.Sub(t.Payload.IssuedAt)
}

// TokenPair is the access and refresh token minted together at login.
type TokenPair struct {
	Access  IssuedToken
	Refresh IssuedToken
}

// RevocationRecord marks a token string as unusable until its natural expiry.
type RevocationRecord struct {
	Token     string    `bson:"token"`
	Kind      TokenKind `bson:"kind"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
