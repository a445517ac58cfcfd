package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/mdd-api/internal/domain"
)

func TestToDomainError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
		msg    string
	}{
		{"domain error passthrough", NewConflict("Email already exists"), CodeConflict, http.StatusConflict, "Email already exists"},
		{"wrapped domain error", fmt.Errorf("ctx: %w", NewNotFound("User")), CodeNotFound, http.StatusNotFound, "User not found"},
		{"fiber error", fiber.ErrMethodNotAllowed, "METHOD_NOT_ALLOWED", http.StatusMethodNotAllowed, "Method Not Allowed"},
		{"fiber not found", fiber.ErrNotFound, CodeNotFound, http.StatusNotFound, "Not Found"},
		{"user not found sentinel", domain.ErrUserNotFound, CodeNotFound, http.StatusNotFound, "User not found"},
		{"duplicate sentinel", domain.ErrDuplicateUser, CodeConflict, http.StatusConflict, "User already exists"},
		{"anything else", errors.New("db exploded"), CodeInternal, http.StatusInternalServerError, "internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			de := ToDomainError(tc.err)
			assert.Equal(t, tc.code, de.Code)
			assert.Equal(t, tc.status, de.HTTPStatus)
			assert.Equal(t, tc.msg, de.Message)
		})
	}

	assert.Nil(t, ToDomainError(nil))
}

func TestDomainErrorBody(t *testing.T) {
	validation := NewValidationError("invalid payload", map[string]string{"email": "Email must be valid"}).(*DomainError)
	assert.Equal(t, map[string]string{"email": "Email must be valid"}, validation.Body())

	conflict := NewConflict("Username already exists").(*DomainError)
	assert.Equal(t, fiber.Map{"error": "Username already exists"}, conflict.Body())
}

func TestInternalErrorHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	de := NewInternalError(cause).(*DomainError)

	assert.ErrorIs(t, de, cause)
	assert.Equal(t, fiber.Map{"error": "internal server error"}, de.Body())
}
