// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/holomush/authsvc/internal/auth"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memDenylist keeps revocations in memory and ignores TTLs.
type memDenylist struct {
	mu       sync.Mutex
	tokens   map[string]time.Duration
	sessions map[string]time.Duration
	subjects map[string]time.Time
	err      error
}

func newMemDenylist() *memDenylist {
	return &memDenylist{
		tokens:   map[string]time.Duration{},
		sessions: map[string]time.Duration{},
		subjects: map[string]time.Time{},
	}
}

func (d *memDenylist) RevokeToken(_ context.Context, id string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return false, d.err
	}
	if _, ok := d.tokens[id]; ok {
		return false, nil
	}
	d.tokens[id] = ttl
	return true, nil
}

func (d *memDenylist) RevokeSession(_ context.Context, id string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sessions[id] = ttl
	return nil
}

func (d *memDenylist) RevokeSubject(_ context.Context, subject string, at time.Time, _ time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.subjects[subject] = at
	return nil
}

func (d *memDenylist) Revocation(_ context.Context, id, sessionID, subject string) (auth.Revocation, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return auth.Revocation{}, d.err
	}
	_, revoked := d.tokens[id]
	_, ended := d.sessions[sessionID]
	return auth.Revocation{TokenRevoked: revoked, SessionRevoked: ended, SubjectRevokedAt: d.subjects[subject]}, nil
}

func (d *memDenylist) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// passthroughTx runs fn directly.
type passthroughTx struct{ calls int }

func (tx *passthroughTx) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx.calls++
	return fn(ctx)
}

// plainHasher is a fast stand-in for argon2id. Hashes prefixed with
// "legacy$" need an upgrade.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", auth.ErrEmptyPassword
	}
	return "plain$" + password, nil
}

func (plainHasher) Verify(password, hash string) bool {
	_, stored, ok := strings.Cut(hash, "$")
	return ok && (strings.HasPrefix(hash, "plain$") || strings.HasPrefix(hash, "legacy$")) && stored == password
}

func (plainHasher) NeedsUpgrade(hash string) bool {
	return strings.HasPrefix(hash, "legacy$")
}

func newTokenService(t *testing.T, denylist auth.Denylist, c *clock) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     testSecret,
		Issuer:     "authsvc-test",
		AccessTTL:  30 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
	}, denylist, auth.WithClock(c.Now))
	require.NoError(t, err)
	return svc
}

// logBuffer captures JSON log output.
type logBuffer struct {
	bytes.Buffer
}

func (b *logBuffer) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&b.Buffer, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
