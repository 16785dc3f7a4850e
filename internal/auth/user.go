// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"
)

// Input constraints.
const (
	MinPasswordLength = 8
	MaxPasswordLength = 256
	MinFullNameLength = 1
	MaxFullNameLength = 100
	MaxEmailLength    = 254
)

// User is an account. PasswordHash is empty for accounts created through a
// federated login that never set a local password.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser is the externally visible profile. It never carries the hash.
type PublicUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Public returns the profile view of u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// NormalizeEmail trims and lower-cases an address so lookups and the unique
// index agree.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks an already normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return ValidationError("email", "email is required")
	}
	if len(email) > MaxEmailLength {
		return ValidationError("email", "email must be at most %d characters", MaxEmailLength)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ValidationError("email", "email is not a valid address")
	}
	return nil
}

// ValidatePassword checks password length bounds.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength {
		return ValidationError("password", "password must be at least %d characters", MinPasswordLength)
	}
	if len(password) > MaxPasswordLength {
		return ValidationError("password", "password must be at most %d bytes", MaxPasswordLength)
	}
	return nil
}

// ValidateFullName checks display name bounds.
func ValidateFullName(name string) error {
	n := utf8.RuneCountInString(strings.TrimSpace(name))
	if n < MinFullNameLength || n > MaxFullNameLength {
		return ValidationError("full_name", "full_name must be between %d and %d characters",
			MinFullNameLength, MaxFullNameLength)
	}
	return nil
}

// NewUser creates a validated, not yet persisted User. passwordHash may be
// empty for federated accounts.
func NewUser(email, fullName, passwordHash string) (*User, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	fullName = strings.TrimSpace(fullName)
	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}
	now := time.Now()
	return &User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// UserRepository manages user persistence. Implementations honour a
// transaction carried in ctx.
type UserRepository interface {
	// Create inserts u and sets its ID and timestamps. A colliding email
	// fails with DUPLICATE_EMAIL.
	Create(ctx context.Context, u *User) error

	// GetByEmail looks up a user by normalized email. Returns ErrNotFound.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByID looks up a user by id. Returns ErrNotFound.
	GetByID(ctx context.Context, id int64) (*User, error)

	// UpdatePassword replaces the stored hash. Returns ErrNotFound.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

// Transactor runs fn inside a database transaction carried in ctx. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
