package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/mdd-api/internal/domain"
	"github.com/spec-kit/mdd-api/internal/events"
	"github.com/spec-kit/mdd-api/internal/observability"
	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

const bearerPrefix = "Bearer "

// PrincipalDirectory resolves a token subject to the current user record.
// Implementations return domain.ErrUserNotFound when the subject is unknown.
type PrincipalDirectory interface {
	LookupPrincipal(ctx context.Context, subject string) (*domain.Principal, error)
}

// MiddlewareOption customises an AuthMiddleware.
type MiddlewareOption func(*AuthMiddleware)

// WithMetrics counts rejections by failure kind.
func WithMetrics(m *observability.Metrics) MiddlewareOption {
	return func(a *AuthMiddleware) { a.metrics = m }
}

// WithEvents publishes an auth_rejected event for every rejection.
func WithEvents(d events.Dispatcher) MiddlewareOption {
	return func(a *AuthMiddleware) { a.events = d }
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens    *TokenCodec
	directory PrincipalDirectory
	routes    *RoutePolicy
	logger    *zap.Logger
	metrics   *observability.Metrics
	events    events.Dispatcher
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenCodec, directory PrincipalDirectory, routes *RoutePolicy, logger *zap.Logger, opts ...MiddlewareOption) *AuthMiddleware {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &AuthMiddleware{tokens: tokens, directory: directory, routes: routes, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// errDirectory marks lookup failures that are neither a miss nor a deadline.
var errDirectory = errors.New("principal directory failure")

// Handle classifies the route, authenticates the bearer token and attaches
// the principal. Protected routes never reach the next handler on failure.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	if _, ok := PrincipalFromContext(c); ok {
		return c.Next()
	}

	public := m.routes.IsPublic(c.Path())

	token, err := bearerToken(c.Get(fiber.HeaderAuthorization))
	if err != nil {
		if public {
			return c.Next()
		}
		return m.reject(c, err)
	}

	principal, err := m.authenticate(c.UserContext(), token)
	if err != nil {
		if errors.Is(err, errDirectory) {
			m.logger.Error("principal lookup failed",
				zap.String("request_id", observability.RequestID(c)),
				zap.String("path", c.Path()),
				zap.Bool("public", public),
				zap.Error(err))
			if public {
				return c.Next()
			}
			return apperrors.NewInternalError(err)
		}
		if public {
			m.logger.Debug("ignoring invalid credentials on public route",
				zap.String("path", c.Path()),
				zap.String("kind", FailureKind(err)))
			return c.Next()
		}
		return m.reject(c, err)
	}

	attachPrincipal(c, principal)
	return c.Next()
}

func (m *AuthMiddleware) authenticate(ctx context.Context, token string) (*domain.Principal, error) {
	claims, err := m.tokens.VerifyAndDecode(token, m.tokens.Now())
	if err != nil {
		return nil, err
	}
	subject := claims.Subject()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownPrincipal, err)
	}

	principal, err := m.directory.LookupPrincipal(ctx, subject)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		return nil, ErrUnknownPrincipal
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return nil, fmt.Errorf("%w: %w", ErrUnknownPrincipal, err)
	default:
		return nil, fmt.Errorf("%w: %w", errDirectory, err)
	}

	// A user deleted and re-created under the same email must not inherit
	// tokens of the old account.
	if principal == nil || principal.Subject != subject {
		return nil, ErrUnknownPrincipal
	}
	if id, err := claims.UserID(); err == nil && id != principal.UserID {
		return nil, ErrUnknownPrincipal
	}
	return principal, nil
}

func (m *AuthMiddleware) reject(c *fiber.Ctx, err error) error {
	kind := FailureKind(err)
	fields := []zap.Field{
		zap.String("request_id", observability.RequestID(c)),
		zap.String("kind", kind),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
	}
	switch kind {
	case KindLookupTimeout:
		m.logger.Warn("principal lookup timed out", fields...)
	case KindRequestCancelled:
		m.logger.Info("request cancelled during authentication", fields...)
	default:
		m.logger.Warn("authentication rejected", append(fields, zap.Error(err))...)
	}

	m.metrics.RecordAuthFailure(kind)
	if m.events != nil {
		evt := events.New(events.EventAuthRejected, events.Actor{}, m.tokens.Now(), events.AuthRejectedPayload{
			Kind:   kind,
			Method: c.Method(),
			Path:   c.Path(),
		})
		if pubErr := m.events.Publish(context.WithoutCancel(c.UserContext()), evt); pubErr != nil {
			m.logger.Warn("publish auth_rejected", zap.Error(pubErr))
		}
	}

	return Respond(c)
}

// bearerToken extracts the credential from "Bearer <token>". Anything else,
// including a different scheme, counts as missing credentials.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissingCredentials
	}
	token, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok || token == "" || strings.ContainsAny(token, " \t") {
		return "", fmt.Errorf("%w: invalid authorization header", ErrMissingCredentials)
	}
	return token, nil
}

// RequireAuthenticated rejects requests that carry no principal. It guards
// handlers that must never run anonymously, even on public routes.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return Respond(c)
		}
		return c.Next()
	}
}
