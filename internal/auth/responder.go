package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// UnauthorizedMessage is the only reason ever shown to clients.
const UnauthorizedMessage = "Authentication required to access this resource"

// UnauthorizedBody is the JSON payload for rejected requests on protected routes.
type UnauthorizedBody struct {
	Status  int    `json:"status"`
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}

// Respond writes the uniform 401 response. The body never depends on why
// authentication failed.
func Respond(c *fiber.Ctx) error {
	return c.Status(http.StatusUnauthorized).JSON(UnauthorizedBody{
		Status:  http.StatusUnauthorized,
		Error:   http.StatusText(http.StatusUnauthorized),
		Message: UnauthorizedMessage,
		Path:    c.Path(),
	})
}
