// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"net"

	"github.com/holomush/authsvc/internal/auth/postgres"
	"github.com/holomush/authsvc/internal/cache"
	"github.com/holomush/authsvc/internal/config"
	"github.com/holomush/authsvc/internal/store"
)

// Database is the pool surface serve needs. *pgxpool.Pool satisfies it.
type Database interface {
	postgres.DB
	Ping(ctx context.Context) error
	Close()
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values use their default implementations.
type ServeDeps struct {
	// DatabaseFactory opens the PostgreSQL pool.
	// Default: store.OpenPool
	DatabaseFactory func(ctx context.Context, cfg config.DatabaseConfig) (Database, error)

	// CacheFactory opens the Redis client.
	// Default: cache.New
	CacheFactory func(cfg config.CacheConfig) (*cache.Client, error)

	// ListenerFactory binds the public API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// OnReady is called with the API address once the server accepts
	// requests.
	OnReady func(addr string)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseFactory == nil {
		out.DatabaseFactory = func(ctx context.Context, cfg config.DatabaseConfig) (Database, error) {
			return store.OpenPool(ctx, cfg)
		}
	}
	if out.CacheFactory == nil {
		out.CacheFactory = cache.New
	}
	if out.ListenerFactory == nil {
		out.ListenerFactory = net.Listen
	}
	if out.OnReady == nil {
		out.OnReady = func(string) {}
	}
	return &out
}
