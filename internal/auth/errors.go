// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"

	"github.com/samber/oops"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes surfaced to callers. The HTTP layer maps each to a status.
const (
	CodeDuplicateEmail          = "DUPLICATE_EMAIL"
	CodeInvalidCredentials      = "INVALID_CREDENTIALS"
	CodeInvalidToken            = "INVALID_TOKEN"
	CodeOAuthVerificationFailed = "OAUTH_VERIFICATION_FAILED"
	CodeOAuthNotImplemented     = "OAUTH_NOT_IMPLEMENTED"
	CodeUnknownProvider         = "UNKNOWN_PROVIDER"
	CodeInvalidOrExpiredToken   = "INVALID_OR_EXPIRED_TOKEN"
	CodeRateLimited             = "RATE_LIMITED"
	CodeUpstreamUnavailable     = "UPSTREAM_UNAVAILABLE"
	CodeValidationFailed        = "VALIDATION_FAILED"
)

// Caller-facing messages. Login and token failures use one message each so
// responses do not reveal which check failed.
const (
	MsgDuplicateEmail        = "Email already registered"
	MsgInvalidCredentials    = "Incorrect email or password"
	MsgInvalidToken          = "Could not validate credentials"
	MsgOAuthFailed           = "OAuth verification failed"
	MsgInvalidOrExpiredToken = "Invalid or expired reset token"
)

// DuplicateEmailError reports a registration collision.
func DuplicateEmailError() error {
	return oops.Code(CodeDuplicateEmail).Errorf(MsgDuplicateEmail)
}

// InvalidCredentialsError reports a failed password login.
func InvalidCredentialsError() error {
	return oops.Code(CodeInvalidCredentials).Errorf(MsgInvalidCredentials)
}

// InvalidTokenError reports a malformed, expired, tampered or revoked token.
func InvalidTokenError() error {
	return oops.Code(CodeInvalidToken).Errorf(MsgInvalidToken)
}

// InvalidResetTokenError reports an unusable password reset token.
func InvalidResetTokenError() error {
	return oops.Code(CodeInvalidOrExpiredToken).Errorf(MsgInvalidOrExpiredToken)
}

// UpstreamUnavailable wraps a store or cache failure.
func UpstreamUnavailable(component string, err error) error {
	return oops.Code(CodeUpstreamUnavailable).With("component", component).Wrap(err)
}

// ValidationError reports a rejected input field.
func ValidationError(field, format string, args ...any) error {
	return oops.Code(CodeValidationFailed).With("field", field).Errorf(format, args...)
}
