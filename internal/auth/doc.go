// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides account registration, login and token lifecycle.
//
// # Domain Types
//
// Domain types (User, PasswordReset) should be created using their
// constructors:
//   - NewUser - creates a User with a normalized, validated email and name
//   - NewPasswordReset - creates a PasswordReset with validated user and expiry
//
// Direct struct initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated types from these constructors.
//
// # Services
//
//   - TokenService - issues and verifies signed bearer tokens, backed by a Denylist
//   - HashPool - bounds concurrent password hashing
//   - Service - register, password and federated login, refresh, logout,
//     current user and the two-phase password reset
//
// Errors carry oops codes (see errors.go) that the HTTP layer maps to
// statuses.
package auth
