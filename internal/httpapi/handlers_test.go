// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/config"
	"github.com/holomush/authsvc/internal/httpapi"
	"github.com/holomush/authsvc/internal/observability"
)

// fakeService answers with canned results and remembers its inputs.
type fakeService struct {
	registered   auth.RegisterInput
	loginEmail   string
	loginPass    string
	lastToken    string
	lastProvider string
	lastCode     string
	resetEmail   string
	err          error
	pair         auth.TokenPair
	user         auth.PublicUser
	panicOn      string
}

func (f *fakeService) Register(_ context.Context, in auth.RegisterInput) (auth.PublicUser, error) {
	f.registered = in
	return f.user, f.err
}

func (f *fakeService) Login(_ context.Context, email, password string) (auth.TokenPair, error) {
	if f.panicOn == "login" {
		panic("boom")
	}
	f.loginEmail, f.loginPass = email, password
	return f.pair, f.err
}

func (f *fakeService) Refresh(_ context.Context, token string) (auth.TokenPair, error) {
	f.lastToken = token
	return f.pair, f.err
}

func (f *fakeService) AuthorizationURL(provider string) (string, error) {
	f.lastProvider = provider
	return "https://accounts.example.com/auth?client_id=x", f.err
}

func (f *fakeService) LoginWithProvider(_ context.Context, provider, code string) (auth.TokenPair, error) {
	f.lastProvider, f.lastCode = provider, code
	return f.pair, f.err
}

func (f *fakeService) LoginWithProviderToken(_ context.Context, provider, token string) (auth.TokenPair, error) {
	f.lastProvider, f.lastToken = provider, token
	return f.pair, f.err
}

func (f *fakeService) Logout(_ context.Context, token string) error {
	f.lastToken = token
	return f.err
}

func (f *fakeService) CurrentUser(_ context.Context, token string) (auth.PublicUser, error) {
	f.lastToken = token
	return f.user, f.err
}

func (f *fakeService) RequestPasswordReset(_ context.Context, email string) error {
	f.resetEmail = email
	return f.err
}

func (f *fakeService) ConfirmPasswordReset(_ context.Context, token, _ string) error {
	f.lastToken = token
	return f.err
}

var testPair = auth.TokenPair{AccessToken: "access", RefreshToken: "refresh", TokenType: "bearer", ExpiresIn: 1800}

func newHandler(t *testing.T, svc httpapi.AuthService, mutate ...func(*httpapi.Options)) http.Handler {
	t.Helper()
	opts := httpapi.Options{Config: config.Defaults(config.ProfileDevelopment).HTTP, Service: svc}
	for _, m := range mutate {
		m(&opts)
	}
	srv, err := httpapi.NewServer(opts)
	require.NoError(t, err)
	return srv.Handler()
}

func do(h http.Handler, method, target, contentType, body string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) httpapi.ErrorBody {
	t.Helper()
	var body httpapi.ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestNewServerRequiresService(t *testing.T) {
	_, err := httpapi.NewServer(httpapi.Options{})
	require.Error(t, err)
}

func TestRegister(t *testing.T) {
	svc := &fakeService{user: auth.PublicUser{ID: 1, Email: "a@x.com", FullName: "A", IsActive: true}}
	h := newHandler(t, svc)

	rec := do(h, http.MethodPost, "/api/v1/auth/register", "application/json",
		`{"email":"a@x.com","password":"pw123456","full_name":"A"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, auth.RegisterInput{Email: "a@x.com", Password: "pw123456", FullName: "A"}, svc.registered)
	assert.JSONEq(t, `{"id":1,"email":"a@x.com","full_name":"A","is_active":true,"created_at":"0001-01-01T00:00:00Z"}`,
		rec.Body.String())
}

func TestRegisterRejectsMalformedBodies(t *testing.T) {
	h := newHandler(t, &fakeService{})
	tests := []struct {
		name string
		body string
	}{
		{"not json", `email=a@x.com`},
		{"array", `[]`},
		{"missing field", `{"email":"a@x.com","password":"pw123456"}`},
		{"wrong type", `{"email":"a@x.com","password":12345678,"full_name":"A"}`},
		{"too long", `{"email":"a@x.com","password":"` + strings.Repeat("p", 300) + `","full_name":"A"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/v1/auth/register", "application/json", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, "ValidationFailed", body.Error)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
		wantTag    string
		wantDetail string
	}{
		{auth.DuplicateEmailError(), 400, "DuplicateEmail", "Email already registered"},
		{auth.InvalidCredentialsError(), 401, "InvalidCredentials", "Incorrect email or password"},
		{auth.InvalidTokenError(), 401, "InvalidToken", "Could not validate credentials"},
		{auth.InvalidResetTokenError(), 400, "InvalidOrExpiredToken", "Invalid or expired reset token"},
		{auth.UpstreamUnavailable("postgres", errors.New("dial tcp: refused")), 503,
			"UpstreamUnavailable", "Service temporarily unavailable"},
		{auth.ValidationError("password", "password must be at least 8 characters"), 422,
			"ValidationFailed", "password must be at least 8 characters"},
		{errors.New("disk on fire"), 500, "InternalError", "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.wantTag, func(t *testing.T) {
			h := newHandler(t, &fakeService{err: tt.err})
			rec := do(h, http.MethodPost, "/api/v1/auth/register", "application/json",
				`{"email":"a@x.com","password":"pw123456","full_name":"A"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, httpapi.ErrorBody{Error: tt.wantTag, Detail: tt.wantDetail}, decodeError(t, rec))
			assert.NotContains(t, rec.Body.String(), "disk on fire")
		})
	}
}

func TestLogin(t *testing.T) {
	t.Run("form login returns a bearer pair", func(t *testing.T) {
		svc := &fakeService{pair: testPair}
		h := newHandler(t, svc)
		form := url.Values{"username": {"a@x.com"}, "password": {"pw123456"}}.Encode()

		rec := do(h, http.MethodPost, "/api/v1/auth/login", "application/x-www-form-urlencoded", form)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "a@x.com", svc.loginEmail)
		assert.Equal(t, "pw123456", svc.loginPass)
		assert.JSONEq(t,
			`{"access_token":"access","refresh_token":"refresh","token_type":"bearer","expires_in":1800}`,
			rec.Body.String())
		assert.Empty(t, rec.Result().Cookies(), "no cookie unless configured")
	})

	t.Run("missing fields", func(t *testing.T) {
		h := newHandler(t, &fakeService{})
		rec := do(h, http.MethodPost, "/api/v1/auth/login", "application/x-www-form-urlencoded", "username=a@x.com")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("bad credentials challenge", func(t *testing.T) {
		h := newHandler(t, &fakeService{err: auth.InvalidCredentialsError()})
		rec := do(h, http.MethodPost, "/api/v1/auth/login", "application/x-www-form-urlencoded",
			"username=a@x.com&password=wrong-password")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("session cookie", func(t *testing.T) {
		h := newHandler(t, &fakeService{pair: testPair}, func(o *httpapi.Options) {
			o.Config.SessionCookie = "authsvc_session"
			o.Config.SecureCookie = true
		})
		rec := do(h, http.MethodPost, "/api/v1/auth/login", "application/x-www-form-urlencoded",
			"username=a@x.com&password=pw123456")

		require.Equal(t, http.StatusOK, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "authsvc_session", cookies[0].Name)
		assert.Equal(t, "access", cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)
		assert.True(t, cookies[0].Secure)
		assert.Equal(t, 1800, cookies[0].MaxAge)
	})
}

func TestBearerRoutes(t *testing.T) {
	t.Run("me requires a token", func(t *testing.T) {
		h := newHandler(t, &fakeService{})
		rec := do(h, http.MethodGet, "/api/v1/auth/me", "", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "InvalidToken", decodeError(t, rec).Error)
		assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
	})

	t.Run("me rejects other schemes", func(t *testing.T) {
		h := newHandler(t, &fakeService{})
		rec := do(h, http.MethodGet, "/api/v1/auth/me", "", "", "Authorization", "Basic YTpi")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("me passes the bearer token", func(t *testing.T) {
		svc := &fakeService{user: auth.PublicUser{ID: 3, Email: "a@x.com"}}
		h := newHandler(t, svc)
		rec := do(h, http.MethodGet, "/api/v1/auth/me", "", "", "Authorization", "bearer tok-123")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tok-123", svc.lastToken)
	})

	t.Run("cookie fallback and logout clears it", func(t *testing.T) {
		svc := &fakeService{}
		h := newHandler(t, svc, func(o *httpapi.Options) { o.Config.SessionCookie = "sid" })

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
		req.AddCookie(&http.Cookie{Name: "sid", Value: "cookie-token"})
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "cookie-token", svc.lastToken)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

func TestRefresh(t *testing.T) {
	svc := &fakeService{pair: testPair}
	h := newHandler(t, svc)

	rec := do(h, http.MethodPost, "/api/v1/auth/refresh", "application/json", `{"refresh_token":"r-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "r-1", svc.lastToken)

	rec = do(h, http.MethodPost, "/api/v1/auth/refresh", "application/json", `{"refresh_token":""}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestProviderRoutes(t *testing.T) {
	t.Run("authorization url", func(t *testing.T) {
		svc := &fakeService{}
		rec := do(newHandler(t, svc), http.MethodGet, "/api/v1/auth/google/login", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "google", svc.lastProvider)
		assert.JSONEq(t, `{"authorization_url":"https://accounts.example.com/auth?client_id=x"}`, rec.Body.String())
	})

	t.Run("callback redeems the code", func(t *testing.T) {
		svc := &fakeService{pair: testPair}
		rec := do(newHandler(t, svc), http.MethodGet, "/api/v1/auth/facebook/callback?code=abc", "", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "facebook", svc.lastProvider)
		assert.Equal(t, "abc", svc.lastCode)
	})

	t.Run("callback needs a code", func(t *testing.T) {
		rec := do(newHandler(t, &fakeService{}), http.MethodGet, "/api/v1/auth/google/callback", "", "")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("token login", func(t *testing.T) {
		svc := &fakeService{pair: testPair}
		rec := do(newHandler(t, svc), http.MethodPost, "/api/v1/auth/google/token", "application/json",
			`{"token":"id-token"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "id-token", svc.lastToken)
	})

	errs := []struct {
		err     error
		status  int
		wantTag string
	}{
		{oopsCode(auth.CodeUnknownProvider), http.StatusNotFound, "UnknownProvider"},
		{oopsCode(auth.CodeOAuthNotImplemented), http.StatusNotImplemented, "NotImplemented"},
		{oopsCode(auth.CodeOAuthVerificationFailed), http.StatusUnauthorized, "OAuthVerificationFailed"},
	}
	for _, tt := range errs {
		t.Run(tt.wantTag, func(t *testing.T) {
			rec := do(newHandler(t, &fakeService{err: tt.err}), http.MethodPost, "/api/v1/auth/github/token",
				"application/json", `{"token":"t"}`)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.wantTag, decodeError(t, rec).Error)
		})
	}
}

func TestPasswordReset(t *testing.T) {
	t.Run("request always accepts", func(t *testing.T) {
		svc := &fakeService{}
		rec := do(newHandler(t, svc), http.MethodPost, "/api/v1/auth/password-reset/request",
			"application/json", `{"email":"nobody@example.com"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "nobody@example.com", svc.resetEmail)
	})

	t.Run("confirm maps a bad token", func(t *testing.T) {
		svc := &fakeService{err: auth.InvalidResetTokenError()}
		rec := do(newHandler(t, svc), http.MethodPost, "/api/v1/auth/password-reset/confirm",
			"application/json", `{"token":"abc","new_password":"n3w-password"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "InvalidOrExpiredToken", decodeError(t, rec).Error)
	})

	t.Run("confirm succeeds", func(t *testing.T) {
		rec := do(newHandler(t, &fakeService{}), http.MethodPost, "/api/v1/auth/password-reset/confirm",
			"application/json", `{"token":"abc","new_password":"n3w-password"}`)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("refused") }

	h := newHandler(t, &fakeService{}, func(o *httpapi.Options) {
		o.Checks = map[string]observability.Check{"database": ok, "cache": down}
	})
	rec := do(h, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","database":"ok","cache":"unavailable"}`, rec.Body.String())
}

func TestUnknownRoute(t *testing.T) {
	rec := do(newHandler(t, &fakeService{}), http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPanicBecomes500(t *testing.T) {
	rec := do(newHandler(t, &fakeService{panicOn: "login"}), http.MethodPost, "/api/v1/auth/login",
		"application/x-www-form-urlencoded", "username=a@x.com&password=pw123456")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "InternalError", decodeError(t, rec).Error)
}

func TestBodyLimit(t *testing.T) {
	h := newHandler(t, &fakeService{}, func(o *httpapi.Options) { o.Config.MaxBodyBytes = 64 })
	rec := do(h, http.MethodPost, "/api/v1/auth/register", "application/json",
		`{"email":"a@x.com","password":"pw123456","full_name":"`+strings.Repeat("A", 100)+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeError(t, rec).Detail, "64 bytes")
}

func TestRequestDeadline(t *testing.T) {
	svc := &deadlineService{fakeService: &fakeService{}}
	h := newHandler(t, svc, func(o *httpapi.Options) { o.Config.RequestTimeout = 5 * time.Second })
	do(h, http.MethodGet, "/api/v1/auth/me", "", "", "Authorization", "Bearer t")

	require.False(t, svc.deadline.IsZero())
	assert.WithinDuration(t, time.Now().Add(5*time.Second), svc.deadline, time.Second)
}

type deadlineService struct {
	*fakeService
	deadline time.Time
}

func (d *deadlineService) CurrentUser(ctx context.Context, _ string) (auth.PublicUser, error) {
	d.deadline, _ = ctx.Deadline()
	return auth.PublicUser{}, nil
}

func oopsCode(code string) error {
	return oops.Code(code).Errorf("%s", strings.ToLower(code))
}
