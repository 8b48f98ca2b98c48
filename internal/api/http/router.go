package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/book-store-service/internal/api/http/handlers"
	"github.com/spec-kit/book-store-service/internal/auth"
	"github.com/spec-kit/book-store-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Users   *handlers.UsersHandler
	Books   *handlers.BooksHandler
	Gate    *auth.Gate
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	api := app.Group("/api")
	api.Post("/users/register", cfg.Users.Register)
	api.Post("/users/login", cfg.Users.Login)
	api.Post("/users/logout", cfg.Users.Logout)
	api.Get("/test", cfg.Gate.Handle, cfg.Users.Test)

	store := app.Group("/store", cfg.Gate.Handle)
	store.Get("/books", cfg.Books.List)
	store.Post("/books", cfg.Books.Create)
	store.Get("/books/:id", cfg.Books.Get)
	store.Put("/books/:id", cfg.Books.Update)
	store.Delete("/books/:id", cfg.Books.Delete)
}
