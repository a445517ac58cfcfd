package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mdd-api/internal/api/dto"
	"github.com/spec-kit/mdd-api/internal/auth"
	"github.com/spec-kit/mdd-api/internal/service"
	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

// UsersHandler exposes profile endpoints.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService) *UsersHandler {
	return &UsersHandler{users: userService}
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	user, err := h.users.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := userID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateProfileRequest
	if err := dto.Bind(c, &req); err != nil {
		return err
	}

	principal, _ := auth.PrincipalFromContext(c)
	user, err := h.users.UpdateProfile(c.UserContext(), principal, id, service.ProfileChanges{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.NewUserResponse(user))
}

func userID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]string{"id": "User id must be a positive integer"})
	}
	return int64(id), nil
}
