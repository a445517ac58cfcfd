package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/mdd-api/internal/auth"
	"github.com/spec-kit/mdd-api/internal/config"
	"github.com/spec-kit/mdd-api/internal/domain"
	"github.com/spec-kit/mdd-api/internal/events"
)

type memoryUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*domain.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{nextID: 1, byID: map[int64]*domain.User{}}
}

func (m *memoryUsers) Create(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == user.Email || u.Username == user.Username {
			return domain.ErrDuplicateUser
		}
	}
	user.ID = m.nextID
	m.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memoryUsers) Update(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = time.Now()
	copied := *user
	m.byID[user.ID] = &copied
	return nil
}

func (m *memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *memoryUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email })
}

func (m *memoryUsers) FindByEmailOrUsername(ctx context.Context, identifier string) (*domain.User, error) {
	if u, err := m.GetByEmail(ctx, identifier); err == nil {
		return u, nil
	}
	return m.find(func(u *domain.User) bool { return u.Username == identifier })
}

func (m *memoryUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

func (m *memoryUsers) ExistsByUsername(_ context.Context, username string) (bool, error) {
	_, err := m.find(func(u *domain.User) bool { return u.Username == username })
	return err == nil, nil
}

func (m *memoryUsers) LookupPrincipal(ctx context.Context, subject string) (*domain.Principal, error) {
	u, err := m.GetByEmail(ctx, subject)
	if err != nil {
		return nil, err
	}
	return u.Principal(), nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var testAuthConfig = config.AuthConfig{BcryptCost: bcrypt.MinCost}

type fixture struct {
	users    *memoryUsers
	codec    *auth.TokenCodec
	recorder *recorder
	auth     *AuthService
	profiles *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	codec, err := auth.NewTokenCodec(auth.TokenConfig{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    time.Hour,
	})
	require.NoError(t, err)

	f := &fixture{users: newMemoryUsers(), codec: codec, recorder: &recorder{}}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventUserRegistered, events.EventUserLoggedIn, events.EventProfileUpdated} {
		dispatcher.Subscribe(et, f.recorder.handle)
	}

	f.auth = NewAuthService(testAuthConfig, AuthDependencies{
		UserRepo: f.users,
		Tokens:   codec,
		Events:   dispatcher,
	})
	f.profiles = NewUserService(testAuthConfig, f.users, dispatcher, nil)
	return f
}

func (f *fixture) register(t *testing.T, username, email string) *domain.User {
	t.Helper()
	user, _, err := f.auth.Register(context.Background(), username, email, "Str0ng!Pass")
	require.NoError(t, err)
	return user
}
