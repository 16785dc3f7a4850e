// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// HashPool bounds the number of password hashes computed at once. argon2id
// is CPU and memory heavy; without a bound a burst of logins would starve
// every other request.
type HashPool struct {
	hasher PasswordHasher
	slots  *semaphore.Weighted
}

// NewHashPool wraps hasher so at most workers computations run concurrently.
func NewHashPool(hasher PasswordHasher, workers int64) (*HashPool, error) {
	if hasher == nil {
		return nil, oops.Code("HASH_POOL_INVALID").Errorf("hasher is required")
	}
	if workers <= 0 {
		return nil, oops.Code("HASH_POOL_INVALID").With("workers", workers).Errorf("workers must be positive")
	}
	return &HashPool{hasher: hasher, slots: semaphore.NewWeighted(workers)}, nil
}

// Hash computes a new hash once a slot is free.
func (p *HashPool) Hash(ctx context.Context, password string) (string, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return "", oops.With("operation", "acquire hash slot").Wrap(err)
	}
	defer p.slots.Release(1)
	return p.hasher.Hash(password)
}

// Verify checks password against hash once a slot is free. The only error
// returned is the context's, when it ends before a slot frees up.
func (p *HashPool) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := p.slots.Acquire(ctx, 1); err != nil {
		return false, oops.With("operation", "acquire hash slot").Wrap(err)
	}
	defer p.slots.Release(1)
	return p.hasher.Verify(password, hash), nil
}

// NeedsUpgrade reports whether hash should be recomputed. It is cheap and
// does not take a slot.
func (p *HashPool) NeedsUpgrade(hash string) bool {
	return p.hasher.NeedsUpgrade(hash)
}
