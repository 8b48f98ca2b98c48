package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/events"
)

// RevocationStore persists blacklisted token strings until their natural expiry.
type RevocationStore interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
	// Revoke must treat a repeated token as success.
	Revoke(ctx context.Context, record domain.RevocationRecord) error
}

// SessionConfig holds token lifetimes.
type SessionConfig struct {
	AccessTTL         time.Duration
	RefreshTTL        time.Duration
	RevocationTimeout time.Duration
}

// SessionManager issues, refreshes and revokes token pairs.
// It never touches HTTP responses; callers apply cookies.
type SessionManager struct {
	codec  *TokenCodec
	store  RevocationStore
	events events.Dispatcher
	logger *zap.Logger
	cfg    SessionConfig
}

// NewSessionManager validates cfg and builds a manager. dispatcher may be nil.
func NewSessionManager(codec *TokenCodec, store RevocationStore, dispatcher events.Dispatcher, logger *zap.Logger, cfg SessionConfig) (*SessionManager, error) {
	if codec == nil || store == nil {
		return nil, errors.New("session manager requires codec and revocation store")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("access ttl must be positive")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh ttl must not be shorter than access ttl")
	}
	if cfg.RevocationTimeout <= 0 {
		cfg.RevocationTimeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{codec: codec, store: store, events: dispatcher, logger: logger, cfg: cfg}, nil
}

// Codec exposes the token codec used by the manager.
func (s *SessionManager) Codec() *TokenCodec {
	return s.codec
}

// Login mints an access and a refresh token for identity at the same instant.
func (s *SessionManager) Login(ctx context.Context, identity domain.Identity) (domain.TokenPair, error) {
	now := s.codec.Now()

	access, err := s.codec.signAt(identity, domain.TokenKindAccess, s.cfg.AccessTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}
	refresh, err := s.codec.signAt(identity, domain.TokenKindRefresh, s.cfg.RefreshTTL, now)
	if err != nil {
		return domain.TokenPair{}, err
	}

	s.publish(ctx, events.NewEvent(events.EventSessionStarted, identity.UserID, now, nil))
	return domain.TokenPair{Access: access, Refresh: refresh}, nil
}

// RefreshAccess mints a new access token from a valid, unexpired, unrevoked refresh token.
// Check failures wrap ErrRefreshInvalid; blacklist lookup failures are returned as is.
// The refresh token itself is never revoked here.
func (s *SessionManager) RefreshAccess(ctx context.Context, refreshToken string) (domain.IssuedToken, error) {
	payload, err := s.codec.VerifyKind(refreshToken, domain.TokenKindRefresh)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}

	revoked, err := s.store.IsRevoked(ctx, refreshToken)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("check refresh token revocation: %w", err)
	}
	if revoked {
		return domain.IssuedToken{}, fmt.Errorf("%w: %w", ErrRefreshInvalid, ErrRevoked)
	}

	// only identity fields carry over; iat/exp/jti are fresh
	access, err := s.codec.Sign(domain.TokenPayload{Identity: payload.Identity}, domain.TokenKindAccess, s.cfg.AccessTTL)
	if err != nil {
		return domain.IssuedToken{}, fmt.Errorf("%w: %w", ErrRefreshInvalid, err)
	}

	s.publish(ctx, events.NewEvent(events.EventSessionRefreshed, payload.UserID, access.Payload.IssuedAt, nil))
	return access, nil
}

// Logout revokes whichever of the two tokens are present.
// It returns ErrNoActiveSession when both are empty.
func (s *SessionManager) Logout(ctx context.Context, accessToken, refreshToken string) error {
	if accessToken == "" && refreshToken == "" {
		return ErrNoActiveSession
	}

	userID, err := s.revokePair(ctx, accessToken, refreshToken)
	s.publish(ctx, events.NewEvent(events.EventSessionEnded, userID, s.codec.Now(), nil))
	return err
}

// Terminate revokes both tokens after the gate detected a broken session.
func (s *SessionManager) Terminate(ctx context.Context, accessToken, refreshToken, reason string) error {
	userID, err := s.revokePair(ctx, accessToken, refreshToken)
	s.publish(ctx, events.NewEvent(events.EventSessionTerminated, userID, s.codec.Now(),
		events.SessionTerminatedPayload{Reason: reason}))
	return err
}

// Revoke blacklists a single token and leaves its sibling untouched.
func (s *SessionManager) Revoke(ctx context.Context, token string) error {
	payload, err := s.codec.Verify(token)
	if payload == nil {
		return err
	}
	return s.revoke(ctx, token, payload)
}

func (s *SessionManager) revokePair(ctx context.Context, accessToken, refreshToken string) (string, error) {
	var (
		userID string
		errs   []error
	)
	for _, token := range []string{accessToken, refreshToken} {
		if token == "" {
			continue
		}
		payload, err := s.codec.Verify(token)
		if payload == nil {
			// nothing authentic to blacklist
			s.logger.Warn("skipping revocation of undecodable token", zap.Error(err))
			continue
		}
		if userID == "" {
			userID = payload.UserID
		}
		if err := s.revoke(ctx, token, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return userID, errors.Join(errs...)
}

func (s *SessionManager) revoke(ctx context.Context, token string, payload *domain.TokenPayload) error {
	now := s.codec.Now()
	if payload.Expired(now) {
		return nil
	}

	// finish the write even if the client has gone away
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.RevocationTimeout)
	defer cancel()

	record := domain.RevocationRecord{
		Token:     token,
		Kind:      payload.Kind,
		UserID:    payload.UserID,
		CreatedAt: now,
		ExpiresAt: payload.ExpiresAt,
	}
	if err := s.store.Revoke(writeCtx, record); err != nil {
		return fmt.Errorf("revoke %s token: %w", payload.Kind, err)
	}

	s.logger.Info("token revoked",
		zap.String("user_id", payload.UserID),
		zap.String("kind", string(payload.Kind)),
		zap.String("token_id", payload.ID))
	s.publish(ctx, events.NewEvent(events.EventTokenRevoked, payload.UserID, now, events.TokenRevokedPayload{
		TokenID:   payload.ID,
		Kind:      payload.Kind,
		ExpiresAt: payload.ExpiresAt,
	}))
	return nil
}

func (s *SessionManager) publish(ctx context.Context, event events.Event) {
	if s.events == nil {
		return
	}
	_ = s.events.Publish(context.WithoutCancel(ctx), event)
}
