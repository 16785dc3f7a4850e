// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// incrScript increments KEYS[1] and starts its window on the first hit.
// Running both steps server-side means a counter can never be left without
// an expiry.
var incrScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Counter is a fixed-window counter.
type Counter struct {
	client *Client
}

// NewCounter returns a counter storing its keys through c.
func NewCounter(c *Client) *Counter {
	return &Counter{client: c}
}

// Incr adds one to key and returns the new count. The key expires window
// after its first increment.
func (c *Counter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window < time.Millisecond {
		return 0, oops.Code("CACHE_WINDOW_INVALID").With("window", window).Errorf("window must be at least 1ms")
	}
	n, err := incrScript.Run(ctx, c.client.rdb, []string{c.client.key(key)}, window.Milliseconds()).Int64()
	if err != nil {
		return 0, unavailable("incr", err)
	}
	return n, nil
}
