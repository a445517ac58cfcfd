package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CorsPolicy is the process-wide cross-origin policy applied to every path.
type CorsPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
}

// DefaultCorsPolicy allows the given origins with credentials.
func DefaultCorsPolicy(origins ...string) CorsPolicy {
	return CorsPolicy{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Authorization"},
		AllowCredentials: true,
	}
}

// Validate rejects combinations browsers refuse to honour.
func (p CorsPolicy) Validate() error {
	if len(p.AllowedOrigins) == 0 {
		return errors.New("cors: at least one allowed origin is required")
	}
	if p.AllowCredentials {
		for _, o := range p.AllowedOrigins {
			if o == "*" {
				return errors.New("cors: wildcard origin cannot be combined with credentials")
			}
		}
	}
	return nil
}

// Config converts the policy to the fiber cors middleware configuration.
func (p CorsPolicy) Config() cors.Config {
	headers := strings.Join(p.AllowedHeaders, ",")
	if headers == "*" {
		// empty makes the middleware reflect the requested headers
		headers = ""
	}
	return cors.Config{
		AllowOrigins:     strings.Join(p.AllowedOrigins, ","),
		AllowMethods:     strings.Join(p.AllowedMethods, ","),
		AllowHeaders:     headers,
		ExposeHeaders:    strings.Join(p.ExposedHeaders, ","),
		AllowCredentials: p.AllowCredentials,
	}
}

// Handler returns the middleware enforcing the policy.
func (p CorsPolicy) Handler() fiber.Handler {
	return cors.New(p.Config())
}
