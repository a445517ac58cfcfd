package dto

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

func details(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	de := apperrors.ToDomainError(ValidationError(err))
	require.Equal(t, apperrors.CodeValidationFailed, de.Code)
	return de.Details
}

func TestRegisterRequestValidate(t *testing.T) {
	valid := RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "Str0ng!Pass"}
	assert.NoError(t, valid.Validate())

	got := details(t, RegisterRequest{}.Validate())
	assert.Equal(t, map[string]string{
		"username": "Username is required",
		"email":    "Email is required",
		"password": "Password is required",
	}, got)

	got = details(t, RegisterRequest{Username: "al", Email: "not-an-email", Password: "weak"}.Validate())
	assert.Equal(t, msgUsernameLength, got["username"])
	assert.Equal(t, "Email must be valid", got["email"])
	assert.Equal(t, msgPasswordWeak, got["password"])
}

func TestStrongPassword(t *testing.T) {
	accepted := []string{"Str0ng!Pass", "aB3@aaaa", "Zz9=zzzzzzzz"}
	for _, p := range accepted {
		assert.NoError(t, StrongPassword(p), p)
	}

	rejected := []string{
		"Sh0rt!",
		"nouppercase1!",
		"NOLOWERCASE1!",
		"NoDigits!!",
		"NoSpecial123",
		"Has Space1!",
		"Tab\tSep1!a",
		"Wrong*Special1",
	}
	for _, p := range rejected {
		assert.Error(t, StrongPassword(p), p)
	}

	assert.NoError(t, StrongPassword(""))
}

func TestLoginRequestValidate(t *testing.T) {
	assert.NoError(t, LoginRequest{Identifier: "alice", Password: "x"}.Validate())

	got := details(t, LoginRequest{}.Validate())
	assert.Equal(t, "Email or username is required", got["identifier"])
	assert.Equal(t, "Password is required", got["password"])
}

func TestUpdateProfileRequestAllowsPartialUpdates(t *testing.T) {
	assert.NoError(t, UpdateProfileRequest{}.Validate())
	assert.NoError(t, UpdateProfileRequest{Username: "alice2"}.Validate())

	got := details(t, UpdateProfileRequest{Email: "bad", Password: "weak"}.Validate())
	assert.Equal(t, "Email must be valid", got["email"])
	assert.Equal(t, msgPasswordWeak, got["password"])
	assert.NotContains(t, got, "username")
}

func TestBind(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			de := apperrors.ToDomainError(err)
			return c.Status(de.HTTPStatus).JSON(de.Body())
		},
	})
	app.Post("/login", func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := Bind(c, &req); err != nil {
			return err
		}
		return c.SendString(req.Identifier)
	})

	send := func(body string) (*http.Response, error) {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(body))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return app.Test(req)
	}

	resp, err := send(`{"identifier":"alice","password":"secret"}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = send(`{"identifier":""}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = send(`{not json`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
