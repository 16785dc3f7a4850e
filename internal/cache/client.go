// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package cache holds the Redis-backed shared state: the rate-limit counter
// and the token denylist.
package cache

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/config"
)

// Client wraps a Redis client and the key prefix every key is namespaced
// under.
type Client struct {
	rdb    redis.UniversalClient
	prefix string
}

// New builds a client from cfg. go-redis dials lazily, so an unreachable
// server does not fail this call.
func New(cfg config.CacheConfig) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, oops.Code("CACHE_CONFIG_INVALID").
			With("operation", "parse cache url").
			Wrap(err)
	}
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	return NewFromRedis(redis.NewClient(opts), cfg.KeyPrefix), nil
}

// NewFromRedis wraps an existing client.
func NewFromRedis(rdb redis.UniversalClient, prefix string) *Client {
	return &Client{rdb: rdb, prefix: prefix}
}

// Ping checks connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		return oops.With("operation", "close cache").Wrap(err)
	}
	return nil
}

func (c *Client) key(parts ...string) string {
	return c.prefix + strings.Join(parts, ":")
}

// unavailable maps any Redis failure to UPSTREAM_UNAVAILABLE. Redis errors
// are either connectivity problems or bugs in a fixed command set, and
// neither should leak as a 500 with driver detail.
func unavailable(op string, err error) error {
	return auth.UpstreamUnavailable("redis", oops.With("operation", op).Wrap(err))
}
