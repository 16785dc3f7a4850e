// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/authsvc/pkg/errutil"
)

// RequestPasswordReset starts a reset for email. It reports success whether
// or not the address is registered; only store failures surface. Delivery
// failures are logged.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (err error) {
	defer func() { s.record(EventResetRequest, err) }()

	email = NormalizeEmail(email)
	if ValidateEmail(email) != nil {
		return nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		s.logger.DebugContext(ctx, "password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return oops.With("operation", "get user by email").Wrap(err)
	}
	if !user.IsActive {
		return nil
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.With("operation", "generate reset token").Wrap(err)
	}
	reset, err := NewPasswordReset(user.ID, hash, s.now().Add(s.resetTTL))
	if err != nil {
		return oops.With("operation", "new password reset").Wrap(err)
	}
	if err := s.resets.Create(ctx, reset); err != nil {
		return oops.With("operation", "store password reset").Wrap(err)
	}

	notice := ResetNotice{
		Email:     user.Email,
		FullName:  user.FullName,
		Token:     token,
		Link:      s.resetLink(token),
		ExpiresAt: reset.ExpiresAt,
	}
	if err := s.notifier.Deliver(ctx, notice); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password reset delivery failed",
			oops.With("user_id", user.ID).Wrap(err))
	}
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token. Consuming
// the token, storing the new hash and dropping the user's other pending
// resets happen in one transaction. Every token the user held before the
// reset is revoked afterwards.
//
// The token is checked before the password: an unknown token is
// INVALID_OR_EXPIRED_TOKEN whatever the password. A weak password with a
// live token rolls the transaction back, so the token stays usable.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) (err error) {
	defer func() { s.record(EventResetConfirm, err) }()

	token = strings.TrimSpace(token)
	if token == "" {
		return InvalidResetTokenError()
	}

	// Hash outside the transaction so no connection is held during it.
	var hash string
	passwordErr := ValidatePassword(newPassword)
	if passwordErr == nil {
		if hash, err = s.hashes.Hash(ctx, newPassword); err != nil {
			return oops.With("operation", "hash password").Wrap(err)
		}
	}

	var user *User
	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		reset, err := s.resets.Consume(ctx, HashResetToken(token), s.now())
		if errors.Is(err, ErrNotFound) {
			return InvalidResetTokenError()
		}
		if err != nil {
			return err
		}
		if passwordErr != nil {
			return passwordErr
		}
		if err := s.users.UpdatePassword(ctx, reset.UserID, hash); err != nil {
			if errors.Is(err, ErrNotFound) {
				return InvalidResetTokenError()
			}
			return err
		}
		if err := s.resets.DeleteByUser(ctx, reset.UserID); err != nil {
			return err
		}
		user, err = s.users.GetByID(ctx, reset.UserID)
		return err
	})
	if err != nil {
		return oops.With("operation", "confirm password reset").Wrap(err)
	}

	if err := s.tokens.RevokeSubject(ctx, user.Email); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "revoking tokens after password reset failed",
			oops.With("user_id", user.ID).Wrap(err))
	}
	s.logger.InfoContext(ctx, "password reset completed", "user_id", user.ID)
	return nil
}

// PurgeExpiredResets deletes reset requests that can no longer be used.
func (s *Service) PurgeExpiredResets(ctx context.Context) (int64, error) {
	n, err := s.resets.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, oops.With("operation", "delete expired resets").Wrap(err)
	}
	return n, nil
}

func (s *Service) resetLink(token string) string {
	if s.linkBase == "" {
		return ""
	}
	u, err := url.Parse(s.linkBase)
	if err != nil {
		return ""
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
