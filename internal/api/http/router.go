package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mdd-api/internal/api/http/handlers"
	"github.com/spec-kit/mdd-api/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	LoginThrottle fiber.Handler
}

// RegisterRoutes wires HTTP routes. Whether a route needs credentials is
// decided by the global authentication gate; RequireAuthenticated guards
// handlers that read the principal.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	if cfg.LoginThrottle != nil {
		authGroup.Post("/login", cfg.LoginThrottle, cfg.Auth.Login)
	} else {
		authGroup.Post("/login", cfg.Auth.Login)
	}
	authGroup.Get("/me", auth.RequireAuthenticated(), cfg.Auth.Me)

	users := app.Group("/api/users", auth.RequireAuthenticated())
	users.Get("/:id", cfg.Users.Get)
	users.Put("/:id", cfg.Users.Update)
}
