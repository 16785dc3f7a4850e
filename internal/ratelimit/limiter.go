// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package ratelimit implements a fixed-window request limiter over a shared
// counter.
package ratelimit

import (
	"context"
	"time"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/config"
)

// KeyPrefix starts every counter key.
const KeyPrefix = "rate_limit"

// Counter increments a key that expires window after its first increment.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Decision is the outcome for one request.
type Decision struct {
	Allowed    bool
	Count      int64
	Limit      int64
	RetryAfter time.Duration
}

// Remaining is how many more requests the window admits.
func (d Decision) Remaining() int64 {
	if d.Count >= d.Limit {
		return 0
	}
	return d.Limit - d.Count
}

type override struct {
	pattern string
	match   glob.Glob
	limit   int64
}

// Limiter admits at most a ceiling of requests per client and path within
// each window.
type Limiter struct {
	counter   Counter
	limit     int64
	window    time.Duration
	failOpen  bool
	overrides []override
}

// New builds a limiter from cfg.
func New(counter Counter, cfg config.RateLimitConfig) (*Limiter, error) {
	if counter == nil {
		return nil, oops.Code("RATE_LIMIT_CONFIG_INVALID").Errorf("counter is required")
	}
	if cfg.Limit <= 0 {
		return nil, oops.Code("RATE_LIMIT_CONFIG_INVALID").With("limit", cfg.Limit).Errorf("limit must be positive")
	}
	if cfg.Window <= 0 {
		return nil, oops.Code("RATE_LIMIT_CONFIG_INVALID").With("window", cfg.Window).Errorf("window must be positive")
	}

	l := &Limiter{
		counter:  counter,
		limit:    cfg.Limit,
		window:   cfg.Window,
		failOpen: cfg.FailOpen,
	}
	for _, o := range cfg.Overrides {
		g, err := glob.Compile(o.Pattern, '/')
		if err != nil {
			return nil, oops.Code("RATE_LIMIT_CONFIG_INVALID").With("pattern", o.Pattern).Wrap(err)
		}
		if o.Limit <= 0 {
			return nil, oops.Code("RATE_LIMIT_CONFIG_INVALID").
				With("pattern", o.Pattern).
				Errorf("override limit must be positive")
		}
		l.overrides = append(l.overrides, override{pattern: o.Pattern, match: g, limit: o.Limit})
	}
	return l, nil
}

// FailOpen reports whether requests should pass when the counter is down.
func (l *Limiter) FailOpen() bool {
	return l.failOpen
}

// LimitFor returns the ceiling for endpoint. The first matching override
// wins.
func (l *Limiter) LimitFor(endpoint string) int64 {
	for _, o := range l.overrides {
		if o.match.Match(endpoint) {
			return o.limit
		}
	}
	return l.limit
}

// Key is the counter key for a client and endpoint.
func Key(clientKey, endpoint string) string {
	return KeyPrefix + ":" + clientKey + ":" + endpoint
}

// Allow counts one request and decides it. Rejected requests count too.
// A counter failure is returned as UPSTREAM_UNAVAILABLE with a zero
// Decision; the caller decides whether to fail open.
func (l *Limiter) Allow(ctx context.Context, clientKey, endpoint string) (Decision, error) {
	limit := l.LimitFor(endpoint)
	n, err := l.counter.Incr(ctx, Key(clientKey, endpoint), l.window)
	if err != nil {
		return Decision{}, auth.UpstreamUnavailable("rate limiter",
			oops.With("client", clientKey).With("endpoint", endpoint).Wrap(err))
	}
	return Decision{
		Allowed:    n <= limit,
		Count:      n,
		Limit:      limit,
		RetryAfter: l.window,
	}, nil
}
