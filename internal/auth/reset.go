// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ResetTokenBytes is the entropy of a reset token: 32 bytes = 64 hex chars.
const ResetTokenBytes = 32

// DefaultResetTokenTTL is how long a reset token stays usable.
const DefaultResetTokenTTL = time.Hour

// PasswordReset is a pending reset. Only the SHA-256 of the token is stored.
type PasswordReset struct {
	ID        ulid.ULID
	UserID    int64
	TokenHash string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewPasswordReset creates a validated PasswordReset.
func NewPasswordReset(userID int64, tokenHash string, expiresAt time.Time) (*PasswordReset, error) {
	if userID <= 0 {
		return nil, oops.Code("RESET_INVALID_USER").With("user_id", userID).Errorf("user ID must be positive")
	}
	if tokenHash == "" {
		return nil, oops.Code("RESET_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &PasswordReset{
		ID:        ulid.Make(),
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt returns true if the reset is no longer usable at t.
func (r *PasswordReset) IsExpiredAt(t time.Time) bool {
	return !t.Before(r.ExpiresAt)
}

// GenerateResetToken creates a secure random token and its hash.
// The plaintext token goes to the user; the hash is stored.
func GenerateResetToken() (token, hash string, err error) {
	tokenBytes := make([]byte, ResetTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	token = hex.EncodeToString(tokenBytes)
	return token, HashResetToken(token), nil
}

// HashResetToken computes the stored form of a reset token.
func HashResetToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// PasswordResetRepository manages password reset persistence. Implementations
// honour a transaction carried in ctx.
type PasswordResetRepository interface {
	// Create stores a new password reset request.
	Create(ctx context.Context, reset *PasswordReset) error

	// Consume deletes and returns the unexpired reset with tokenHash in one
	// statement, so a token can be redeemed at most once. Returns ErrNotFound.
	Consume(ctx context.Context, tokenHash string, now time.Time) (*PasswordReset, error)

	// DeleteByUser removes all reset requests for a user.
	DeleteByUser(ctx context.Context, userID int64) error

	// DeleteExpired removes all reset requests expired at now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// ResetNotice is handed to a ResetNotifier when a reset is requested.
type ResetNotice struct {
	Email     string
	FullName  string
	Token     string
	Link      string
	ExpiresAt time.Time
}

// ResetNotifier delivers reset tokens out of band (email, SMS, ...).
type ResetNotifier interface {
	Deliver(ctx context.Context, notice ResetNotice) error
}
