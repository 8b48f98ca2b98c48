package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/book-store-service/internal/domain"
)

const (
	AccessCookieName  = "accessToken"
	RefreshCookieName = "refreshToken"
)

// Cookies writes session cookies. Secure is set only in production.
type Cookies struct {
	Secure bool
}

// NewCookies builds the cookie writer.
func NewCookies(secure bool) Cookies {
	return Cookies{Secure: secure}
}

// SetPair sets both session cookies.
func (k Cookies) SetPair(c *fiber.Ctx, pair domain.TokenPair) {
	k.set(c, AccessCookieName, pair.Access)
	k.set(c, RefreshCookieName, pair.Refresh)
}

// SetAccess replaces the access cookie after a refresh.
func (k Cookies) SetAccess(c *fiber.Ctx, token domain.IssuedToken) {
	k.set(c, AccessCookieName, token)
}

// Clear expires both session cookies.
func (k Cookies) Clear(c *fiber.Ctx) {
	for _, name := range []string{AccessCookieName, RefreshCookieName} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0).UTC(),
			HTTPOnly: true,
			Secure:   k.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
}

func (k Cookies) set(c *fiber.Ctx, name string, token domain.IssuedToken) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    token.Token,
		Path:     "/",
		MaxAge:   int(token.TTL() / time.Second),
		HTTPOnly: true,
		Secure:   k.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
