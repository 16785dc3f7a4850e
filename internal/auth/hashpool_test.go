// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/pkg/errutil"
)

// countingHasher records the peak number of concurrent calls.
type countingHasher struct {
	inFlight atomic.Int64
	peak     atomic.Int64
	hold     time.Duration
}

func (h *countingHasher) enter() {
	n := h.inFlight.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(h.hold)
	h.inFlight.Add(-1)
}

func (h *countingHasher) Hash(password string) (string, error) {
	h.enter()
	return "hash:" + password, nil
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.enter()
	return hash == "hash:"+password
}

func (h *countingHasher) NeedsUpgrade(string) bool { return false }

func TestNewHashPool_Validation(t *testing.T) {
	_, err := auth.NewHashPool(nil, 1)
	errutil.AssertErrorCode(t, err, "HASH_POOL_INVALID")

	_, err = auth.NewHashPool(&countingHasher{}, 0)
	errutil.AssertErrorCode(t, err, "HASH_POOL_INVALID")
}

func TestHashPool_BoundsConcurrency(t *testing.T) {
	defer goleak.VerifyNone(t)

	h := &countingHasher{hold: 5 * time.Millisecond}
	pool, err := auth.NewHashPool(h, 2)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := pool.Verify(context.Background(), "pw", "hash:pw")
			assert.NoError(t, err)
			assert.True(t, ok)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, h.peak.Load(), int64(2))
}

func TestHashPool_ContextCancelledWhileWaiting(t *testing.T) {
	h := &countingHasher{hold: 50 * time.Millisecond}
	pool, err := auth.NewHashPool(h, 1)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = pool.Hash(context.Background(), "first")
	}()
	time.Sleep(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()
	ok, err := pool.Verify(ctx, "pw", "hash:pw")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ok)
	<-done
}

func TestHashPool_HashAndUpgradeDelegate(t *testing.T) {
	pool, err := auth.NewHashPool(&countingHasher{}, 1)
	require.NoError(t, err)

	hash, err := pool.Hash(context.Background(), "pw")
	require.NoError(t, err)
	assert.Equal(t, "hash:pw", hash)
	assert.False(t, pool.NeedsUpgrade(hash))
}
