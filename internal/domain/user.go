package domain

import (
	"errors"
	"time"
)

var (
	// ErrUserNotFound is returned by stores when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when a unique constraint on email or username fails.
	ErrDuplicateUser = errors.New("user already exists")
)

// User is the domain model for platform members.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal returns the identity projection carried by tokens.
func (u *User) Principal() *Principal {
	return &Principal{Subject: u.Email, UserID: u.ID, Username: u.Username}
}
