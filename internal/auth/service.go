// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/oops"

	"github.com/holomush/authsvc/internal/federation"
	"github.com/holomush/authsvc/pkg/errutil"
)

// dummyPasswordHash is verified when the account does not exist or has no
// local password, so a miss costs the same as a wrong password. It matches
// no password.
//
//nolint:gosec // G101: intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// defaultFullName is used for federated accounts whose provider supplied no
// usable name.
const defaultFullName = "User"

// TokenTypeBearer is the token_type of every issued pair.
const TokenTypeBearer = "bearer"

// TokenPair is what a successful login returns to the client.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RegisterInput is a registration request.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
}

// Federation verifies third-party credentials.
type Federation interface {
	AuthorizationURL(tag string) (string, error)
	ExchangeCode(ctx context.Context, tag, code string) (federation.Result, error)
	ExchangeAndVerify(ctx context.Context, tag, credential string) (federation.Result, error)
}

// EventRecorder counts auth outcomes. outcome is "success" or an error code.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}

// Auth events reported to the EventRecorder.
const (
	EventRegister      = "register"
	EventLogin         = "login"
	EventOAuthLogin    = "oauth_login"
	EventRefresh       = "refresh"
	EventLogout        = "logout"
	EventResetRequest  = "password_reset_request"
	EventResetConfirm  = "password_reset_confirm"
	outcomeSuccess     = "success"
	outcomeUnspecified = "error"
)

// ServiceConfig wires a Service.
type ServiceConfig struct {
	Users      UserRepository
	Resets     PasswordResetRepository
	Tx         Transactor
	Hashes     *HashPool
	Tokens     *TokenService
	Federation Federation
	Notifier   ResetNotifier
	Events     EventRecorder
	Logger     *slog.Logger

	// ResetTTL is how long a reset token stays usable.
	ResetTTL time.Duration
	// ResetLinkBase is prefixed to the raw reset token to build the link
	// handed to the notifier. Empty leaves Link blank.
	ResetLinkBase string
	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Service orchestrates registration, logins, token lifecycle and password
// resets. It holds no per-user state of its own.
type Service struct {
	users      UserRepository
	resets     PasswordResetRepository
	tx         Transactor
	hashes     *HashPool
	tokens     *TokenService
	federation Federation
	notifier   ResetNotifier
	events     EventRecorder
	logger     *slog.Logger
	resetTTL   time.Duration
	linkBase   string
	now        func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Users == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	case cfg.Resets == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("reset repository is required")
	case cfg.Tx == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("transactor is required")
	case cfg.Hashes == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("hash pool is required")
	case cfg.Tokens == nil:
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("token service is required")
	}

	s := &Service{
		users:      cfg.Users,
		resets:     cfg.Resets,
		tx:         cfg.Tx,
		hashes:     cfg.Hashes,
		tokens:     cfg.Tokens,
		federation: cfg.Federation,
		notifier:   cfg.Notifier,
		events:     cfg.Events,
		logger:     cfg.Logger,
		resetTTL:   cfg.ResetTTL,
		linkBase:   cfg.ResetLinkBase,
		now:        cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.resetTTL <= 0 {
		s.resetTTL = DefaultResetTokenTTL
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.notifier == nil {
		s.notifier = NewLogNotifier(s.logger, false)
	}
	return s, nil
}

// Register creates a password account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ PublicUser, err error) {
	defer func() { s.record(EventRegister, err) }()

	email := NormalizeEmail(in.Email)
	if err := ValidateEmail(email); err != nil {
		return PublicUser{}, err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return PublicUser{}, err
	}
	if err := ValidateFullName(in.FullName); err != nil {
		return PublicUser{}, err
	}

	hash, err := s.hashes.Hash(ctx, in.Password)
	if err != nil {
		return PublicUser{}, oops.With("operation", "hash password").Wrap(err)
	}
	user, err := NewUser(email, in.FullName, hash)
	if err != nil {
		return PublicUser{}, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return PublicUser{}, oops.With("operation", "create user").Wrap(err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID)
	return user.Public(), nil
}

// Login checks an email and password and issues a token pair. Unknown
// emails, wrong passwords, passwordless and inactive accounts all fail the
// same way after the same amount of hashing work.
func (s *Service) Login(ctx context.Context, email, password string) (_ TokenPair, err error) {
	defer func() { s.record(EventLogin, err) }()

	email = NormalizeEmail(email)
	user, lookupErr := s.users.GetByEmail(ctx, email)
	if lookupErr != nil && !errors.Is(lookupErr, ErrNotFound) {
		return TokenPair{}, oops.With("operation", "get user by email").Wrap(lookupErr)
	}

	target := dummyPasswordHash
	if lookupErr == nil && user.HasPassword() {
		target = user.PasswordHash
	}

	valid, err := s.hashes.Verify(ctx, password, target)
	if err != nil {
		return TokenPair{}, oops.With("operation", "verify password").Wrap(err)
	}
	if lookupErr != nil || !user.HasPassword() || !valid || !user.IsActive {
		return TokenPair{}, InvalidCredentialsError()
	}

	if s.hashes.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}
	return s.issuePair(ctx, user, "")
}

// upgradeHash re-hashes a legacy or weak hash. Failures are logged; the
// login still succeeds.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hashes.Hash(ctx, password)
	if err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed", err)
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		errutil.LogErrorContext(ctx, s.logger, "password hash upgrade failed", err)
		return
	}
	user.PasswordHash = hash
}

// AuthorizationURL returns where to send a browser to log in with provider.
func (s *Service) AuthorizationURL(provider string) (string, error) {
	if s.federation == nil {
		return "", unknownProvider(provider)
	}
	return s.federation.AuthorizationURL(provider)
}

// LoginWithProvider completes an authorization-code login.
func (s *Service) LoginWithProvider(ctx context.Context, provider, code string) (_ TokenPair, err error) {
	defer func() { s.record(EventOAuthLogin, err) }()

	if s.federation == nil {
		return TokenPair{}, unknownProvider(provider)
	}
	res, err := s.federation.ExchangeCode(ctx, provider, code)
	if err != nil {
		return TokenPair{}, err
	}
	return s.completeFederated(ctx, res)
}

// LoginWithProviderToken logs in with a token the client already obtained
// from provider.
func (s *Service) LoginWithProviderToken(ctx context.Context, provider, token string) (_ TokenPair, err error) {
	defer func() { s.record(EventOAuthLogin, err) }()

	if s.federation == nil {
		return TokenPair{}, unknownProvider(provider)
	}
	res, err := s.federation.ExchangeAndVerify(ctx, provider, token)
	if err != nil {
		return TokenPair{}, err
	}
	return s.completeFederated(ctx, res)
}

func (s *Service) completeFederated(ctx context.Context, res federation.Result) (TokenPair, error) {
	profile, err := res.Identity()
	if err != nil {
		s.logger.InfoContext(ctx, "federated login rejected",
			append([]any{"outcome", res.Outcome.String()}, errutil.Attrs(err)...)...)
		return TokenPair{}, err
	}

	email := NormalizeEmail(profile.Email)
	if ValidateEmail(email) != nil {
		return TokenPair{}, oops.Code(CodeOAuthVerificationFailed).
			With("provider", profile.Provider).
			With("reason", "unusable email").
			Errorf(MsgOAuthFailed)
	}

	user, err := s.findOrProvision(ctx, email, federatedName(profile.Name, email))
	if err != nil {
		return TokenPair{}, err
	}
	if !user.IsActive {
		return TokenPair{}, oops.Code(CodeOAuthVerificationFailed).
			With("provider", profile.Provider).
			With("reason", "inactive account").
			Errorf(MsgOAuthFailed)
	}
	return s.issuePair(ctx, user, "")
}

// findOrProvision returns the account for email, creating a passwordless
// one on first login. A concurrent first login for the same email makes the
// insert collide; the loser re-reads the winner's row.
func (s *Service) findOrProvision(ctx context.Context, email, fullName string) (*User, error) {
	var user *User
	err := s.tx.InTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByEmail(ctx, email)
		if err == nil {
			user = existing
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		created, err := NewUser(email, fullName, "")
		if err != nil {
			return err
		}
		if err := s.users.Create(ctx, created); err != nil {
			return err
		}
		user = created
		return nil
	})
	if errutil.HasCode(err, CodeDuplicateEmail) {
		user, err = s.users.GetByEmail(ctx, email)
	}
	if err != nil {
		return nil, oops.With("operation", "find or provision federated user").Wrap(err)
	}
	return user, nil
}

// federatedName picks a display name that passes ValidateFullName.
func federatedName(name, email string) string {
	if name = strings.TrimSpace(name); ValidateFullName(name) == nil {
		return name
	}
	if utf8.RuneCountInString(name) > MaxFullNameLength {
		runes := []rune(name)
		if trimmed := strings.TrimSpace(string(runes[:MaxFullNameLength])); ValidateFullName(trimmed) == nil {
			return trimmed
		}
	}
	if local, _, ok := strings.Cut(email, "@"); ok && ValidateFullName(local) == nil {
		return local
	}
	return defaultFullName
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked first, so each refresh token works once.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (_ TokenPair, err error) {
	defer func() { s.record(EventRefresh, err) }()

	claims, err := s.tokens.Verify(ctx, refreshToken, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	user, err := s.activeUser(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.tokens.Revoke(ctx, claims); err != nil {
		return TokenPair{}, err
	}
	return s.issuePair(ctx, user, claims.SessionID)
}

// Logout ends the session of an access token: the token itself and every
// refresh token of the same login stop verifying.
func (s *Service) Logout(ctx context.Context, accessToken string) (err error) {
	defer func() { s.record(EventLogout, err) }()

	claims, err := s.tokens.Verify(ctx, accessToken, TokenAccess)
	if err != nil {
		return err
	}
	if err := s.tokens.EndSession(ctx, claims); err != nil {
		return err
	}
	return s.tokens.Revoke(ctx, claims)
}

// CurrentUser returns the profile of the access token's owner.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (PublicUser, error) {
	claims, err := s.tokens.Verify(ctx, accessToken, TokenAccess)
	if err != nil {
		return PublicUser{}, err
	}
	user, err := s.activeUser(ctx, claims)
	if err != nil {
		return PublicUser{}, err
	}
	return user.Public(), nil
}

// activeUser loads the user a verified token was issued to. A vanished,
// deactivated or renamed account invalidates the token.
func (s *Service) activeUser(ctx context.Context, claims *Claims) (*User, error) {
	user, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, oops.Code(CodeInvalidToken).With("reason", "unknown user").Errorf(MsgInvalidToken)
	}
	if err != nil {
		return nil, oops.With("operation", "get user by id").Wrap(err)
	}
	if !user.IsActive || user.Email != claims.Subject {
		return nil, oops.Code(CodeInvalidToken).With("reason", "account changed").Errorf(MsgInvalidToken)
	}
	return user, nil
}

// issuePair issues an access and refresh token for sessionID. An empty
// sessionID starts a new session.
func (s *Service) issuePair(ctx context.Context, user *User, sessionID string) (TokenPair, error) {
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	subject := Subject{UserID: user.ID, Email: user.Email, SessionID: sessionID}
	access, err := s.tokens.Issue(subject, TokenAccess)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.Issue(subject, TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	s.logger.DebugContext(ctx, "token pair issued", "user_id", user.ID)
	return TokenPair{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		TokenType:    TokenTypeBearer,
		ExpiresIn:    int64(s.tokens.TTL(TokenAccess) / time.Second),
	}, nil
}

func (s *Service) record(event string, err error) {
	if s.events == nil {
		return
	}
	outcome := outcomeSuccess
	if err != nil {
		outcome = errutil.Code(err)
		if outcome == "" {
			outcome = outcomeUnspecified
		}
	}
	s.events.AuthEvent(event, outcome)
}

func unknownProvider(tag string) error {
	return oops.Code(CodeUnknownProvider).With("provider", tag).Errorf("unknown provider %q", tag)
}
