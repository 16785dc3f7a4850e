// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package errutil

import (
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func asOops(t *testing.T, err error) oops.OopsError {
	t.Helper()
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	return oopsErr
}

// AssertErrorCode asserts that err is an oops error with the given code.
func AssertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	asOops(t, err)
	assert.Equal(t, code, Code(err))
}

// AssertErrorContext asserts that err carries key=value in its oops context.
func AssertErrorContext(t *testing.T, err error, key string, value any) {
	t.Helper()
	ctx := asOops(t, err).Context()
	assert.Contains(t, ctx, key)
	assert.Equal(t, value, ctx[key])
}

// AssertFieldError asserts a code plus the rejected input field, the shape
// of every validation and config error.
func AssertFieldError(t *testing.T, err error, code, field string) {
	t.Helper()
	AssertErrorCode(t, err, code)
	AssertErrorContext(t, err, "field", field)
}

// AssertNoErrorContext asserts that no value under key appears in the oops
// context of err. Used to check secrets never reach log attributes.
func AssertNoErrorContext(t *testing.T, err error, key string) {
	t.Helper()
	assert.NotContains(t, asOops(t, err).Context(), key)
}
