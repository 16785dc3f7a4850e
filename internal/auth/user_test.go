// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/pkg/errutil"
)

func TestNewUser(t *testing.T) {
	t.Run("normalizes email and trims name", func(t *testing.T) {
		user, err := auth.NewUser("  A@X.Com ", "  Alice  ", "$argon2id$hash")
		require.NoError(t, err)

		assert.Equal(t, "a@x.com", user.Email)
		assert.Equal(t, "Alice", user.FullName)
		assert.True(t, user.IsActive)
		assert.True(t, user.HasPassword())
		assert.False(t, user.CreatedAt.IsZero())
	})

	t.Run("allows federated account without hash", func(t *testing.T) {
		user, err := auth.NewUser("fed@x.com", "Fed User", "")
		require.NoError(t, err)
		assert.False(t, user.HasPassword())
	})

	t.Run("rejects invalid email", func(t *testing.T) {
		for _, email := range []string{"", "no-at-sign", "Alice <a@x.com>", strings.Repeat("a", 250) + "@x.com"} {
			_, err := auth.NewUser(email, "Alice", "")
			errutil.AssertFieldError(t, err, auth.CodeValidationFailed, "email")
		}
	})

	t.Run("accepts a one-letter name", func(t *testing.T) {
		user, err := auth.NewUser("a@x.com", " A ", "")
		require.NoError(t, err)
		assert.Equal(t, "A", user.FullName)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := auth.NewUser("a@x.com", "   ", "")
		errutil.AssertFieldError(t, err, auth.CodeValidationFailed, "full_name")
	})
}

func TestValidatePassword(t *testing.T) {
	require.NoError(t, auth.ValidatePassword("pw123456"))

	err := auth.ValidatePassword("short")
	errutil.AssertErrorCode(t, err, auth.CodeValidationFailed)

	err = auth.ValidatePassword(strings.Repeat("x", auth.MaxPasswordLength+1))
	errutil.AssertErrorCode(t, err, auth.CodeValidationFailed)
}

func TestUser_PublicOmitsHash(t *testing.T) {
	user := &auth.User{ID: 7, Email: "a@x.com", FullName: "A", PasswordHash: "$argon2id$secret"}

	body, err := json.Marshal(user.Public())
	require.NoError(t, err)

	assert.NotContains(t, string(body), "argon2id")
	assert.NotContains(t, string(body), "password")
	assert.Contains(t, string(body), `"id":7`)
	assert.Contains(t, string(body), `"full_name":"A"`)
}
