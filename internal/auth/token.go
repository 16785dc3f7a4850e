// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenUse distinguishes access tokens from refresh tokens. A token is only
// accepted for the use it was issued for.
type TokenUse string

// Token uses.
const (
	TokenAccess  TokenUse = "access"
	TokenRefresh TokenUse = "refresh"
)

// Claims are the signed contents of a bearer token. Subject is the user's
// email. ID is a ULID whose timestamp is the issuance instant in
// milliseconds. SessionID is shared by every token descended from one login,
// across refresh rotations.
type Claims struct {
	jwt.RegisteredClaims
	UserID    int64    `json:"uid"`
	SessionID string   `json:"sid"`
	Use       TokenUse `json:"token_use"`
}

// IssuedAtMilli returns the issuance instant recorded in the token id.
func (c *Claims) IssuedAtMilli() (time.Time, bool) {
	id, err := ulid.ParseStrict(c.ID)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(id.Time()), true
}

// Subject identifies whom a token is issued to and the session it belongs to.
type Subject struct {
	UserID    int64
	Email     string
	SessionID string
}

// NewSessionID returns an id for a new login session.
func NewSessionID() string {
	return ulid.Make().String()
}

// IssuedToken is a signed token together with its claims.
type IssuedToken struct {
	Token     string
	Claims    Claims
	ExpiresAt time.Time
}

// Revocation is the denylist state relevant to one token.
type Revocation struct {
	// TokenRevoked is set when the token id itself was revoked.
	TokenRevoked bool
	// SessionRevoked is set when the session ended with a logout.
	SessionRevoked bool
	// SubjectRevokedAt, when non-zero, invalidates every token for the
	// subject issued at or before it, compared in milliseconds.
	SubjectRevokedAt time.Time
}

// Denylist records revoked tokens in the shared cache. Entries expire on
// their own once the tokens they cover would have expired.
//
// RevokeToken reports whether this call recorded the revocation; false means
// the token id was already denylisted.
type Denylist interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
	RevokeSubject(ctx context.Context, subject string, at time.Time, ttl time.Duration) error
	Revocation(ctx context.Context, tokenID, sessionID, subject string) (Revocation, error)
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret     []byte
	Algorithm  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// TokenService is the only component that holds the signing key. It issues
// and verifies HMAC-signed JWTs and consults the denylist on every verify.
type TokenService struct {
	secret     []byte
	method     jwt.SigningMethod
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	denylist   Denylist
	now        func() time.Time
}

// TokenOption customises a TokenService.
type TokenOption func(*TokenService)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService.
func NewTokenService(cfg TokenConfig, denylist Denylist, opts ...TokenOption) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("signing secret is required")
	}
	if denylist == nil {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").Errorf("denylist is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").
			With("access_ttl", cfg.AccessTTL).
			With("refresh_ttl", cfg.RefreshTTL).
			Errorf("token lifetimes must be positive")
	}
	alg := cfg.Algorithm
	if alg == "" {
		alg = jwt.SigningMethodHS256.Alg()
	}
	method, ok := jwt.GetSigningMethod(alg).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, oops.Code("TOKEN_CONFIG_INVALID").With("algorithm", alg).Errorf("unsupported signing algorithm")
	}

	s := &TokenService{
		secret:     append([]byte(nil), cfg.Secret...),
		method:     method,
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		denylist:   denylist,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of tokens issued for use.
func (s *TokenService) TTL(use TokenUse) time.Duration {
	if use == TokenRefresh {
		return s.refreshTTL
	}
	return s.accessTTL
}

// Issue signs a new token for subject.
func (s *TokenService) Issue(subject Subject, use TokenUse) (IssuedToken, error) {
	if subject.Email == "" {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").Errorf("subject is required")
	}
	if subject.SessionID == "" {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").Errorf("session id is required")
	}
	if use != TokenAccess && use != TokenRefresh {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("use", use).Errorf("unknown token use")
	}

	now := s.now()
	id, err := ulid.New(ulid.Timestamp(now), ulid.DefaultEntropy())
	if err != nil {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("operation", "token id").Wrap(err)
	}
	expiresAt := now.Add(s.TTL(use))
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.Email,
			Issuer:    s.issuer,
			ID:        id.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UserID:    subject.UserID,
		SessionID: subject.SessionID,
		Use:       use,
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, oops.Code("TOKEN_ISSUE_FAILED").With("operation", "sign").Wrap(err)
	}
	return IssuedToken{Token: signed, Claims: claims, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks the signature, expiry, issuer and intended use of token,
// then the denylist. Every rejection is INVALID_TOKEN with the same message;
// only the logged reason differs. A denylist failure is returned as is.
func (s *TokenService) Verify(ctx context.Context, token string, use TokenUse) (*Claims, error) {
	if token == "" {
		return nil, invalidToken("empty")
	}

	claims := &Claims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, parserOpts...)
	if err != nil || !parsed.Valid {
		return nil, invalidToken("parse")
	}
	if claims.Use != use {
		return nil, invalidToken("use")
	}
	issuedAt, ok := claims.IssuedAtMilli()
	if !ok || claims.Subject == "" || claims.SessionID == "" || claims.IssuedAt == nil {
		return nil, invalidToken("claims")
	}

	rev, err := s.denylist.Revocation(ctx, claims.ID, claims.SessionID, claims.Subject)
	if err != nil {
		return nil, oops.With("operation", "check denylist").Wrap(err)
	}
	if rev.TokenRevoked {
		return nil, invalidToken("revoked")
	}
	if rev.SessionRevoked {
		return nil, invalidToken("session ended")
	}
	if !rev.SubjectRevokedAt.IsZero() && issuedAt.UnixMilli() <= rev.SubjectRevokedAt.UnixMilli() {
		return nil, invalidToken("subject revoked")
	}
	return claims, nil
}

// Revoke denylists a still-valid token until its natural expiry. Only one
// caller can revoke a given token; the others get INVALID_TOKEN, which makes
// refresh rotation single-use under concurrency.
func (s *TokenService) Revoke(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return oops.Code("TOKEN_REVOKE_FAILED").Errorf("claims are required")
	}
	ttl := claims.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	first, err := s.denylist.RevokeToken(ctx, claims.ID, ttl)
	if err != nil {
		return oops.With("operation", "revoke token").Wrap(err)
	}
	if !first {
		return invalidToken("already revoked")
	}
	return nil
}

// EndSession denylists the session claims belongs to, so no token of that
// login, refresh tokens included, verifies again. The entry outlives any
// refresh token the session could still hold.
func (s *TokenService) EndSession(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.SessionID == "" {
		return oops.Code("TOKEN_REVOKE_FAILED").Errorf("session id is required")
	}
	if err := s.denylist.RevokeSession(ctx, claims.SessionID, s.refreshTTL); err != nil {
		return oops.With("operation", "end session").Wrap(err)
	}
	return nil
}

// RevokeSubject invalidates every token issued to subject up to now, to the
// millisecond.
func (s *TokenService) RevokeSubject(ctx context.Context, subject string) error {
	cutoff := s.now()
	if err := s.denylist.RevokeSubject(ctx, subject, cutoff, s.refreshTTL); err != nil {
		return oops.With("operation", "revoke subject").Wrap(err)
	}
	return nil
}

func invalidToken(reason string) error {
	return oops.Code(CodeInvalidToken).With("reason", reason).Errorf(MsgInvalidToken)
}
