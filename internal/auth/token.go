package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/book-store-service/internal/domain"
)

// Claims describes the JWT payload.
type Claims struct {
	UserID string           `json:"userId"`
	Name   string           `json:"name"`
	Email  string           `json:"email"`
	Kind   domain.TokenKind `json:"type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies RS256 tokens. It is safe for concurrent use.
type TokenCodec struct {
	keys *KeyProvider
	now  func() time.Time
}

// CodecOption customizes a TokenCodec.
type CodecOption func(*TokenCodec)

// WithClock overrides the wall clock used for issuance and expiry checks.
func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewTokenCodec builds a codec backed by keys.
func NewTokenCodec(keys *KeyProvider, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{keys: keys, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns the codec clock reading.
func (c *TokenCodec) Now() time.Time {
	return c.now()
}

// Sign issues a token of the given kind for the identity in payload.
// Timestamps already present on payload are ignored.
func (c *TokenCodec) Sign(payload domain.TokenPayload, kind domain.TokenKind, ttl time.Duration) (domain.IssuedToken, error) {
	return c.signAt(payload.Identity, kind, ttl, c.now())
}

func (c *TokenCodec) signAt(identity domain.Identity, kind domain.TokenKind, ttl time.Duration, now time.Time) (domain.IssuedToken, error) {
	if !kind.Valid() {
		return domain.IssuedToken{}, fmt.Errorf("sign: unknown token kind %q", kind)
	}
	if ttl <= 0 {
		return domain.IssuedToken{}, errors.New("sign: ttl must be positive")
	}

	key, err := c.keys.PrivateKey()
	if err != nil {
		return domain.IssuedToken{}, err
	}

	issuedAt := now.Truncate(jwt.TimePrecision)
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		UserID: identity.UserID,
		Name:   identity.Name,
		Email:  identity.Email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.UserID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return domain.IssuedToken{Token: signed, Payload: claims.payload()}, nil
}

// Verify checks the signature and expiry of token.
// On ErrTokenExpired the decoded payload is returned alongside the error.
func (c *TokenCodec) Verify(token string) (*domain.TokenPayload, error) {
	key, err := c.keys.PublicKey()
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
		// reject non-canonical base64 so each valid token has exactly one string form
		jwt.WithStrictDecoding(),
	)
	_, err = parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		// signature is verified before claims, so the payload is authentic
		if !claims.wellFormed() {
			return nil, ErrTokenInvalid
		}
		payload := claims.payload()
		return &payload, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !claims.wellFormed() {
		return nil, ErrTokenInvalid
	}
	payload := claims.payload()
	return &payload, nil
}

func (cl *Claims) wellFormed() bool {
	return cl.Kind.Valid() && cl.UserID != ""
}

// VerifyKind is Verify plus a check that the token carries the expected kind.
// The payload is returned with ErrTokenExpired and ErrTokenKindMismatch.
func (c *TokenCodec) VerifyKind(token string, kind domain.TokenKind) (*domain.TokenPayload, error) {
	payload, err := c.Verify(token)
	if payload == nil {
		return nil, err
	}
	if payload.Kind != kind {
		return payload, ErrTokenKindMismatch
	}
	return payload, err
}

func (cl *Claims) payload() domain.TokenPayload {
	p := domain.TokenPayload{
		Identity: domain.Identity{UserID: cl.UserID, Name: cl.Name, Email: cl.Email},
		ID:       cl.ID,
		Kind:     cl.Kind,
	}
	if cl.IssuedAt != nil {
		p.IssuedAt = cl.IssuedAt.Time
	}
	if cl.ExpiresAt != nil {
		p.ExpiresAt = cl.ExpiresAt.Time
	}
	return p
}
