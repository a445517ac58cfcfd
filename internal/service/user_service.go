package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/mdd-api/internal/auth"
	"github.com/spec-kit/mdd-api/internal/config"
	"github.com/spec-kit/mdd-api/internal/domain"
	"github.com/spec-kit/mdd-api/internal/events"
	"github.com/spec-kit/mdd-api/internal/repository"
	apperrors "github.com/spec-kit/mdd-api/pkg/util"
)

// MsgForeignProfile is returned when a user edits someone else's profile.
const MsgForeignProfile = "You can only update your own profile"

// ProfileChanges carries the requested profile edits. Empty fields are kept.
type ProfileChanges struct {
	Username string
	Email    string
	Password string
}

// UserService reads and edits user profiles.
type UserService struct {
	users      repository.UserRepository
	events     events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService builds the service.
func NewUserService(cfg config.AuthConfig, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      users,
		events:     dispatcher,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
		now:        time.Now,
	}
}

// GetByID returns a user or a not-found DomainError.
func (s *UserService) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, apperrors.NewNotFound("User")
	}
	return user, err
}

// UpdateProfile applies changes to the caller's own account. Changing the
// email changes the token subject, so tokens issued before are rejected
// from then on.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.Principal, id int64, changes ProfileChanges) (*domain.User, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized(auth.UnauthorizedMessage)
	}
	if actor.UserID != id {
		return nil, apperrors.NewForbidden(MsgForeignProfile)
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var fields []string
	if changes.Username != "" && changes.Username != user.Username {
		taken, err := s.users.ExistsByUsername(ctx, changes.Username)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewConflict(MsgUsernameTaken)
		}
		user.Username = changes.Username
		fields = append(fields, "username")
	}

	if changes.Email != "" && changes.Email != user.Email {
		taken, err := s.users.ExistsByEmail(ctx, changes.Email)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperrors.NewConflict(MsgEmailTaken)
		}
		user.Email = changes.Email
		fields = append(fields, "email")
	}

	if changes.Password != "" {
		hash, err := auth.HashPassword(changes.Password, s.bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
		fields = append(fields, "password")
	}

	if len(fields) == 0 {
		return user, nil
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.events, s.logger, events.New(events.EventProfileUpdated, actorOf(user), s.now(),
		events.ProfileUpdatedPayload{Fields: fields}))
	return user, nil
}
