package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/observability"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

const identityKey = "auth_identity"

type identityCtxKey struct{}

var (
	errBlacklisted     = apperrors.NewDomainError("TOKEN_BLACKLISTED", "Token has been blacklisted", http.StatusForbidden, nil)
	errNoRefreshToken  = apperrors.NewDomainError("NO_REFRESH_TOKEN", "Authentication required", http.StatusUnauthorized, nil)
	errInvalidRefresh  = apperrors.NewDomainError("INVALID_REFRESH_TOKEN", "Invalid authentication token", http.StatusUnauthorized, nil)
	errRefreshExpired  = apperrors.NewDomainError("REFRESH_TOKEN_EXPIRED", "Session expired", http.StatusUnauthorized, nil)
	errTokenMismatch   = apperrors.NewDomainError("TOKEN_MISMATCH", "Token mismatch detected", http.StatusUnauthorized, nil)
	errRefreshFailed   = apperrors.NewDomainError("TOKEN_REFRESH_FAILED", "Failed to refresh token", http.StatusUnauthorized, nil)
	errAuthUnavailable = apperrors.NewDomainError("AUTH_ERROR", "Authentication error", http.StatusInternalServerError, nil)
)

// Gate authenticates requests from the access and refresh cookies,
// silently refreshing the access token when it is missing, invalid or expired.
type Gate struct {
	sessions *SessionManager
	codec    *TokenCodec
	store    RevocationStore
	cookies  Cookies
	logger   *zap.Logger
	metrics  *observability.Metrics
}

// NewGate constructs the middleware. Blacklist checks use the same store the sessions write to.
func NewGate(sessions *SessionManager, cookies Cookies, logger *zap.Logger, metrics *observability.Metrics) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{
		sessions: sessions,
		codec:    sessions.Codec(),
		store:    sessions.store,
		cookies:  cookies,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handle enforces authentication for protected routes.
func (g *Gate) Handle(c *fiber.Ctx) error {
	ctx := c.UserContext()
	access := c.Cookies(AccessCookieName)
	refresh := c.Cookies(RefreshCookieName)

	// blacklist outranks every other state
	for _, token := range []string{access, refresh} {
		if token == "" {
			continue
		}
		revoked, err := g.store.IsRevoked(ctx, token)
		if err != nil {
			g.logger.Error("blacklist lookup failed", zap.Error(err), zap.String("path", c.Path()))
			return g.reject("store_error", errAuthUnavailable.Wrap(err))
		}
		if revoked {
			g.logger.Warn("blacklisted token presented", zap.String("path", c.Path()))
			return g.reject("blacklisted", errBlacklisted)
		}
	}

	identity, err := g.authenticate(c, access, refresh)
	if err != nil {
		return err
	}

	c.Locals(identityKey, identity)
	c.SetUserContext(context.WithValue(ctx, identityCtxKey{}, identity))
	return c.Next()
}

func (g *Gate) authenticate(c *fiber.Ctx, access, refresh string) (*domain.Identity, error) {
	if refresh == "" {
		return nil, g.reject("no_refresh_token", errNoRefreshToken)
	}

	refreshPayload, err := g.codec.VerifyKind(refresh, domain.TokenKindRefresh)
	switch {
	case err == nil:
	case errors.Is(err, ErrTokenExpired):
		g.terminate(c, access, refresh, "refresh_token_expired")
		return nil, g.reject("refresh_token_expired", errRefreshExpired)
	default:
		g.logger.Info("invalid refresh token", zap.Error(err))
		g.terminate(c, access, refresh, "invalid_refresh_token")
		return nil, g.reject("invalid_refresh_token", errInvalidRefresh)
	}

	if access == "" {
		return g.mint(c, refresh, "refreshed_missing_access")
	}

	accessPayload, err := g.codec.VerifyKind(access, domain.TokenKindAccess)
	if err != nil && !errors.Is(err, ErrTokenExpired) {
		return g.mint(c, refresh, "refreshed_invalid_access")
	}

	if accessPayload.UserID != refreshPayload.UserID {
		g.logger.Warn("access and refresh tokens belong to different users",
			zap.String("access_user_id", accessPayload.UserID),
			zap.String("refresh_user_id", refreshPayload.UserID))
		g.terminate(c, access, refresh, "token_mismatch")
		return nil, g.reject("token_mismatch", errTokenMismatch)
	}

	if err != nil {
		return g.mint(c, refresh, "refreshed_expired_access")
	}

	g.metrics.RecordAuthOutcome("accepted")
	identity := accessPayload.Identity
	return &identity, nil
}

// mint makes exactly one refresh attempt.
func (g *Gate) mint(c *fiber.Ctx, refresh, outcome string) (*domain.Identity, error) {
	token, err := g.sessions.RefreshAccess(c.UserContext(), refresh)
	if err != nil {
		if errors.Is(err, ErrRefreshInvalid) {
			g.logger.Info("access token refresh failed", zap.Error(err))
			return nil, g.reject("token_refresh_failed", errRefreshFailed)
		}
		g.logger.Error("access token refresh errored", zap.Error(err))
		return nil, g.reject("store_error", errAuthUnavailable.Wrap(err))
	}

	g.cookies.SetAccess(c, token)
	g.metrics.RecordAuthOutcome(outcome)
	identity := token.Payload.Identity
	return &identity, nil
}

func (g *Gate) terminate(c *fiber.Ctx, access, refresh, reason string) {
	if err := g.sessions.Terminate(c.UserContext(), access, refresh, reason); err != nil {
		g.logger.Error("failed to revoke session tokens", zap.String("reason", reason), zap.Error(err))
	}
	g.cookies.Clear(c)
}

func (g *Gate) reject(outcome string, err *apperrors.DomainError) error {
	g.metrics.RecordAuthOutcome(outcome)
	return err
}

// IdentityFromFiber retrieves the authenticated identity.
func IdentityFromFiber(c *fiber.Ctx) (*domain.Identity, bool) {
	identity, ok := c.Locals(identityKey).(*domain.Identity)
	return identity, ok && identity != nil
}

// IdentityFromContext retrieves the identity from a request context.
func IdentityFromContext(ctx context.Context) (*domain.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(*domain.Identity)
	return identity, ok && identity != nil
}
