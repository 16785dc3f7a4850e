// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package xdg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authsvc/pkg/errutil"
)

func TestConfigDir_EnvVar(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/authsvc", ConfigDir())
}

func TestConfigDir_Default(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/testuser")
	assert.Equal(t, "/home/testuser/.config/authsvc", ConfigDir())
}

func TestDefaultConfigFile(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		path, err := DefaultConfigFile()
		require.NoError(t, err)
		assert.Empty(t, path)
	})

	t.Run("present file", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		dir := filepath.Join(base, "authsvc")
		require.NoError(t, os.MkdirAll(dir, 0o700))
		want := filepath.Join(dir, ConfigFileName)
		require.NoError(t, os.WriteFile(want, []byte("profile: production\n"), 0o600))

		path, err := DefaultConfigFile()
		require.NoError(t, err)
		assert.Equal(t, want, path)
	})

	t.Run("directory in the way", func(t *testing.T) {
		base := t.TempDir()
		t.Setenv("XDG_CONFIG_HOME", base)
		require.NoError(t, os.MkdirAll(filepath.Join(base, "authsvc", ConfigFileName), 0o700))

		_, err := DefaultConfigFile()
		errutil.AssertErrorCode(t, err, "CONFIG_LOOKUP_FAILED")
	})
}
