// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authsvc/internal/config"
	"github.com/holomush/authsvc/internal/xdg"
)

// NewRootCmd creates the root command for the authsvc CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil, nil)
}

func newRootCmd(serveDeps *ServeDeps, migrateDeps *MigrateDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "authsvc",
		Short: "authsvc - user authentication service",
		Long: `authsvc registers users, logs them in with a password or an OAuth2
provider, issues and revokes bearer tokens, and runs password resets.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (YAML)")
	config.BindFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewServeCmd(serveDeps))
	cmd.AddCommand(NewMigrateCmd(migrateDeps))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig reads the effective configuration for cmd: the --config file
// (or $XDG_CONFIG_HOME/authsvc/config.yaml when present), the environment,
// then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if path == "" {
		if path, err = xdg.DefaultConfigFile(); err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
