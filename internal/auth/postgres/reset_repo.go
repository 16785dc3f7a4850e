// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authsvc/internal/auth"
)

// PasswordResetRepository implements auth.PasswordResetRepository using PostgreSQL.
type PasswordResetRepository struct {
	db DB
}

// NewPasswordResetRepository creates a new PasswordResetRepository.
func NewPasswordResetRepository(db DB) *PasswordResetRepository {
	return &PasswordResetRepository{db: db}
}

// Create stores a new password reset request.
func (r *PasswordResetRepository) Create(ctx context.Context, reset *auth.PasswordReset) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, reset.ID.String(), reset.UserID, reset.TokenHash, reset.ExpiresAt, reset.CreatedAt)
	if err != nil {
		return classify("insert password_reset", err)
	}
	return nil
}

// Consume deletes and returns the unexpired reset matching tokenHash. The
// delete is the claim: of two concurrent callers only one gets the row.
func (r *PasswordResetRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (*auth.PasswordReset, error) {
	row := conn(ctx, r.db).QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token_hash = $1 AND expires_at > $2
		RETURNING id, user_id, token_hash, expires_at, created_at
	`, tokenHash, now)

	reset, err := scanReset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return reset, nil
}

// DeleteByUser removes all reset requests for a user.
func (r *PasswordResetRepository) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM password_resets WHERE user_id = $1
	`, userID)
	if err != nil {
		return classify("delete password_resets by user", err)
	}
	// No ErrNotFound if no rows deleted; that's a valid state
	return nil
}

// DeleteExpired removes all reset requests expired at now and returns the count.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := conn(ctx, r.db).Exec(ctx, `
		DELETE FROM password_resets WHERE expires_at <= $1
	`, now)
	if err != nil {
		return 0, classify("delete expired password_resets", err)
	}
	return tag.RowsAffected(), nil
}

// scanReset scans a single row into a PasswordReset.
// pgx.ErrNoRows is returned unchanged for callers to handle.
func scanReset(row pgx.Row) (*auth.PasswordReset, error) {
	var (
		idStr     string
		reset     auth.PasswordReset
		expiresAt time.Time
		createdAt time.Time
	)
	err := row.Scan(&idStr, &reset.UserID, &reset.TokenHash, &expiresAt, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context-specific info
		}
		return nil, classify("scan password_reset", err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RESET_INVALID_ID").
			With("operation", "parse reset id").
			With("id", idStr).
			Wrap(err)
	}
	reset.ID = id
	reset.ExpiresAt = expiresAt
	reset.CreatedAt = createdAt
	return &reset, nil
}

var _ auth.PasswordResetRepository = (*PasswordResetRepository)(nil)
