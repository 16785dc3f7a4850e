// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/authsvc/internal/auth"
)

// Denylist stores revoked token ids, ended sessions and per-subject
// revocation cutoffs.
type Denylist struct {
	client *Client
}

var _ auth.Denylist = (*Denylist)(nil)

// NewDenylist returns a denylist storing its keys through c.
func NewDenylist(c *Client) *Denylist {
	return &Denylist{client: c}
}

func (d *Denylist) tokenKey(id string) string   { return d.client.key("denylist", "jti", id) }
func (d *Denylist) sessionKey(id string) string { return d.client.key("denylist", "sid", id) }
func (d *Denylist) subjectKey(s string) string  { return d.client.key("denylist", "sub", s) }

// RevokeToken records tokenID until ttl elapses. It reports false when the
// id was already present.
func (d *Denylist) RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	if ttl < time.Second {
		ttl = time.Second
	}
	first, err := d.client.rdb.SetNX(ctx, d.tokenKey(tokenID), 1, ttl).Result()
	if err != nil {
		return false, unavailable("revoke token", err)
	}
	return first, nil
}

// RevokeSession records sessionID until ttl elapses.
func (d *Denylist) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := d.client.rdb.Set(ctx, d.sessionKey(sessionID), 1, ttl).Err(); err != nil {
		return unavailable("revoke session", err)
	}
	return nil
}

// RevokeSubject stores at, in unix milliseconds, as the subject's cutoff.
func (d *Denylist) RevokeSubject(ctx context.Context, subject string, at time.Time, ttl time.Duration) error {
	if ttl < time.Second {
		ttl = time.Second
	}
	err := d.client.rdb.Set(ctx, d.subjectKey(subject), at.UnixMilli(), ttl).Err()
	if err != nil {
		return unavailable("revoke subject", err)
	}
	return nil
}

// Revocation reads every entry relevant to one token in a single round trip.
func (d *Denylist) Revocation(ctx context.Context, tokenID, sessionID, subject string) (auth.Revocation, error) {
	vals, err := d.client.rdb.MGet(ctx, d.tokenKey(tokenID), d.sessionKey(sessionID), d.subjectKey(subject)).Result()
	if err != nil {
		return auth.Revocation{}, unavailable("read denylist", err)
	}

	var rev auth.Revocation
	rev.TokenRevoked = vals[0] != nil
	rev.SessionRevoked = vals[1] != nil
	if raw, ok := vals[2].(string); ok {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return auth.Revocation{}, oops.Code("DENYLIST_CORRUPT").
				With("subject", subject).
				Wrapf(err, "parse subject cutoff")
		}
		rev.SubjectRevokedAt = time.UnixMilli(ms).UTC()
	}
	return rev, nil
}
