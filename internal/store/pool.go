// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the relational store lifecycle: the pgx pool, the
// startup connectivity check and schema migrations.
package store

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/holomush/authsvc/internal/config"
)

// OpenPool builds a connection pool for cfg. pgxpool connects lazily, so a
// database that is down does not fail this call; use WaitReady to probe it.
func OpenPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DATABASE_CONFIG_INVALID").
			With("operation", "parse database url").
			Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.QueryTimeout > 0 {
		poolCfg.ConnConfig.RuntimeParams["statement_timeout"] = strconv.FormatInt(cfg.QueryTimeout.Milliseconds(), 10)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DATABASE_OPEN_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}
	return pool, nil
}

// Pinger is anything with a connectivity check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// WaitReady pings p with exponential backoff, at most attempts times in
// total. It returns the last ping error when every attempt fails, or the
// context error when ctx ends first.
func WaitReady(ctx context.Context, name string, p Pinger, attempts uint64, base time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if attempts == 0 {
		attempts = 1
	}
	if base <= 0 {
		base = 250 * time.Millisecond
	}

	backoff := retry.WithMaxRetries(attempts-1, retry.WithCappedDuration(5*time.Second, retry.NewExponential(base)))
	var attempt uint64
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "dependency not ready",
				"dependency", name, "attempt", attempt, "max_attempts", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DEPENDENCY_UNAVAILABLE").
			With("dependency", name).
			With("attempts", attempt).
			Wrap(err)
	}
	logger.InfoContext(ctx, "dependency ready", "dependency", name, "attempts", attempt)
	return nil
}
