package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/book-store-service/internal/api/dto"
	"github.com/spec-kit/book-store-service/internal/auth"
	"github.com/spec-kit/book-store-service/internal/service"
	apperrors "github.com/spec-kit/book-store-service/pkg/util"
)

// UsersHandler exposes account and session endpoints.
type UsersHandler struct {
	auth    *service.AuthService
	cookies auth.Cookies
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cookies auth.Cookies) *UsersHandler {
	return &UsersHandler{auth: authService, cookies: cookies}
}

// Register handles POST /api/users/register.
func (h *UsersHandler) Register(c *fiber.Ctx) error {
	var req dto.UserRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.UserContext(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"message": "User created successfully",
		"data":    dto.NewUserResponse(user),
	})
}

// Login handles POST /api/users/login. Tokens travel only in cookies.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.UserLoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	user, pair, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.cookies.SetPair(c, pair)
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"data":    dto.NewUserResponse(user),
	})
}

// Logout handles POST /api/users/logout. It is reachable without a valid session
// and clears both cookies whatever the outcome.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	access := c.Cookies(auth.AccessCookieName)
	refresh := c.Cookies(auth.RefreshCookieName)

	h.cookies.Clear(c)
	if err := h.auth.Logout(c.UserContext(), access, refresh); err != nil {
		return err
	}
	return c.JSON(dto.MessageResponse{Message: "Logout successful"})
}

// Test handles GET /api/test and echoes the authenticated identity.
func (h *UsersHandler) Test(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromFiber(c)
	if !ok {
		return apperrors.NewUnauthorized("NO_REFRESH_TOKEN", "Authentication required")
	}
	return c.JSON(fiber.Map{
		"message": "Authentication successful",
		"user":    identity,
	})
}
