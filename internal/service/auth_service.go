package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/mdd-api/internal/auth"
	"github.com/spec-kit/mdd-api/internal/config"
	"github.com/spec-kit/mdd-api/internal/domain"
	"github.com/spec-kit/mdd-api/internal/events"
	"github.com/spec-kit/mdd-api/internal/repository"
	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

// Messages surfaced to clients by the auth flows.
const (
	MsgEmailTaken         = "Email already exists"
	MsgUsernameTaken      = "Username already exists"
	MsgInvalidCredentials = "Invalid email/username or password"
	MsgRegistered         = "User registered successfully"
	MsgLoggedIn           = "Login successful"
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenCodec
	events     events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Tokens   *auth.TokenCodec
	Events   events.Dispatcher
	Logger   *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      deps.UserRepo,
		tokens:     deps.Tokens,
		events:     deps.Events,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Register creates a new account and returns it with a fresh token.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*domain.User, string, error) {
	taken, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apperrors.NewConflict(MsgEmailTaken)
	}

	taken, err = s.users.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apperrors.NewConflict(MsgUsernameTaken)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", err
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.IssueFor(user, s.tokens.Now())
	if err != nil {
		return nil, "", err
	}

	s.publish(ctx, events.EventUserRegistered, user, events.UserRegisteredPayload{
		Username: user.Username,
		Email:    user.Email,
	})
	return user, token, nil
}

// Login authenticates by email or username. Unknown identifiers and wrong
// passwords yield the same error.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*domain.User, string, error) {
	user, err := s.users.FindByEmailOrUsername(ctx, identifier)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, "", apperrors.NewUnauthorized(MsgInvalidCredentials)
	}
	if err != nil {
		return nil, "", err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", apperrors.NewUnauthorized(MsgInvalidCredentials)
	}

	token, err := s.tokens.IssueFor(user, s.tokens.Now())
	if err != nil {
		return nil, "", err
	}

	s.publish(ctx, events.EventUserLoggedIn, user, events.UserLoggedInPayload{Identifier: identifier})
	return user, token, nil
}

// CurrentUser loads the full record of the authenticated principal.
func (s *AuthService) CurrentUser(ctx context.Context, principal *domain.Principal) (*domain.User, error) {
	if principal == nil {
		return nil, apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}
	user, err := s.users.GetByEmail(ctx, principal.Subject)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperrors.NewNotFound("User")
	}
	return user, err
}

func (s *AuthService) publish(ctx context.Context, eventType events.EventType, user *domain.User, payload interface{}) {
	publishEvent(ctx, s.events, s.logger, events.New(eventType, actorOf(user), s.tokens.Now(), payload))
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Subject: user.Email}
}

// publishEvent never fails the calling flow; handler errors are logged.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, evt events.Event) {
	if dispatcher == nil {
		return
	}
	if err := dispatcher.Publish(context.WithoutCancel(ctx), evt); err != nil {
		logger.Warn("publish event", zap.String("event_type", string(evt.Type)), zap.Error(err))
	}
}
