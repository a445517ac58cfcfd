package dto

import (
	"errors"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/mdd-api/internal/domain"
	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

const (
	msgUsernameRequired = "Username is required"
	msgUsernameLength   = "Username must be between 3 and 100 characters"
	msgEmailRequired    = "Email is required"
	msgEmailInvalid     = "Email must be valid"
	msgPasswordRequired = "Password is required"
	msgIdentifier       = "Email or username is required"
	msgPasswordWeak     = "Password must contain at least 8 characters, 1 digit, 1 lowercase, 1 uppercase, and 1 special character"
)

const passwordSpecials = "@#$%^&+=!"

// Validatable is implemented by request payloads.
type Validatable interface {
	Validate() error
}

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs the registration rules.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username,
			validation.Required.Error(msgUsernameRequired),
			validation.RuneLength(3, 100).Error(msgUsernameLength),
		),
		validation.Field(&r.Email,
			validation.Required.Error(msgEmailRequired),
			is.Email.Error(msgEmailInvalid),
		),
		validation.Field(&r.Password,
			validation.Required.Error(msgPasswordRequired),
			validation.By(StrongPassword),
		),
	)
}

// LoginRequest payload for login. Identifier is an email or a username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Validate runs the login rules.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required.Error(msgIdentifier)),
		validation.Field(&r.Password, validation.Required.Error(msgPasswordRequired)),
	)
}

// UpdateProfileRequest changes any subset of the profile. Empty fields are
// left unchanged.
type UpdateProfileRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs the profile update rules.
func (r UpdateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.RuneLength(3, 100).Error(msgUsernameLength)),
		validation.Field(&r.Email, is.Email.Error(msgEmailInvalid)),
		validation.Field(&r.Password, validation.By(StrongPassword)),
	)
}

// StrongPassword requires at least 8 characters with a digit, a lowercase
// letter, an uppercase letter, one of @#$%^&+=! and no whitespace. Empty
// values pass; pair it with validation.Required.
func StrongPassword(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	var digit, lower, upper, special bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			return errors.New(msgPasswordWeak)
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case strings.ContainsRune(passwordSpecials, r):
			special = true
		}
	}
	if len([]rune(s)) < 8 || !digit || !lower || !upper || !special {
		return errors.New(msgPasswordWeak)
	}
	return nil
}

// Bind parses the JSON body into v and validates it. Failures come back as
// validation DomainErrors carrying the field -> message map.
func Bind(c *fiber.Ctx, v Validatable) error {
	if err := c.BodyParser(v); err != nil {
		return apperrors.NewValidationError("invalid payload", map[string]string{"body": "Request body must be valid JSON"})
	}
	if err := v.Validate(); err != nil {
		return ValidationError(err)
	}
	return nil
}

// ValidationError converts ozzo validation errors to a DomainError.
func ValidationError(err error) error {
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(err.Error(), map[string]string{"body": err.Error()})
	}
	details := make(map[string]string, len(fieldErrs))
	for field, fieldErr := range fieldErrs {
		if fieldErr != nil {
			details[field] = fieldErr.Error()
		}
	}
	return apperrors.NewValidationError("invalid payload", details)
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Token    string `json:"token"`
	Message  string `json:"message"`
}

// NewAuthResponse builds the response for an issued token.
func NewAuthResponse(user *domain.User, token, message string) AuthResponse {
	return AuthResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Token:    token,
		Message:  message,
	}
}

// UserResponse is the public projection of a user; it never carries the hash.
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewUserResponse maps a domain user.
func NewUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}
