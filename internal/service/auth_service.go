package service

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/book-store-service/internal/auth"
	"github.com/spec-kit/book-store-service/internal/domain"
	"github.com/spec-kit/book-store-service/internal/events"
	"github.com/spec-kit/book-store-service/internal/repository"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

var (
	errUserExists         = apperrors.NewDomainError("USER_EXISTS", "User already exists", http.StatusBadRequest, nil)
	errMissingCredentials = apperrors.NewDomainError("MISSING_CREDENTIALS", "Missing credentials", http.StatusBadRequest, nil)
	errUserNotFound       = apperrors.NewDomainError("USER_NOT_FOUND", "User not found", http.StatusNotFound, nil)
	errPasswordWrong      = apperrors.NewDomainError("PASSWORD_WRONG", "Passwords do not match", http.StatusUnauthorized, nil)
	errNoActiveSession    = apperrors.NewDomainError("NO_ACTIVE_SESSION", "Already logged out", http.StatusBadRequest, nil)
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Password string
}

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	users      repository.UserRepository
	sessions   *auth.SessionManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates requirements for the auth service.
type AuthDependencies struct {
	UserRepo   repository.UserRepository
	Sessions   *auth.SessionManager
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	BcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		sessions:   deps.Sessions,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: deps.BcryptCost,
	}
}

// Register creates a new account. It does not start a session.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
		s.logger.Warn("registration for existing user", zap.String("email", maskEmail(in.Email)))
		return nil, errUserExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, errUserExists
		}
		return nil, err
	}

	s.logger.Info("user created", zap.String("user_id", user.ID))
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, user.CreatedAt, nil))
	}
	return user, nil
}

// Login checks credentials and mints a token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, domain.TokenPair, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, domain.TokenPair{}, errMissingCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.TokenPair{}, errUserNotFound
		}
		return nil, domain.TokenPair{}, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, domain.TokenPair{}, errPasswordWrong
		}
		return nil, domain.TokenPair{}, err
	}

	pair, err := s.sessions.Login(ctx, user.Identity())
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return user, pair, nil
}

// Logout blacklists whichever session tokens the caller still holds.
func (s *AuthService) Logout(ctx context.Context, accessToken, refreshToken string) error {
	err := s.sessions.Logout(ctx, accessToken, refreshToken)
	if errors.Is(err, auth.ErrNoActiveSession) {
		return errNoActiveSession
	}
	return err
}

// maskEmail keeps the first character and the domain.
func maskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return "*****"
	}
	return email[:1] + "*****" + email[at:]
}
