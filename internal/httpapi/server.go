// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package httpapi exposes the auth service over HTTP.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/config"
	"github.com/holomush/authsvc/internal/observability"
	"github.com/holomush/authsvc/internal/ratelimit"
)

// AuthService is what the handlers need from the orchestrator.
type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (auth.PublicUser, error)
	Login(ctx context.Context, email, password string) (auth.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (auth.TokenPair, error)
	AuthorizationURL(provider string) (string, error)
	LoginWithProvider(ctx context.Context, provider, code string) (auth.TokenPair, error)
	LoginWithProviderToken(ctx context.Context, provider, token string) (auth.TokenPair, error)
	Logout(ctx context.Context, accessToken string) error
	CurrentUser(ctx context.Context, accessToken string) (auth.PublicUser, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// Options wires a Server. Limiter, Metrics and Checks are optional.
type Options struct {
	Config  config.HTTPConfig
	Service AuthService
	Limiter *ratelimit.Limiter
	Metrics *observability.Metrics
	// Checks feed the /health body; keys "database" and "cache" are reported.
	Checks map[string]observability.Check
	Logger *slog.Logger
}

// Server routes HTTP requests to the auth service.
type Server struct {
	cfg      config.HTTPConfig
	svc      AuthService
	limiter  *ratelimit.Limiter
	metrics  *observability.Metrics
	checks   map[string]observability.Check
	logger   *slog.Logger
	validate *validator
}

// NewServer validates opts and compiles the request schemas.
func NewServer(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, oops.Code("HTTP_SERVER_INVALID").Errorf("auth service is required")
	}
	v, err := newValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:      opts.Config,
		svc:      opts.Service,
		limiter:  opts.Limiter,
		metrics:  opts.Metrics,
		checks:   opts.Checks,
		logger:   opts.Logger,
		validate: v,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.cfg.BasePath = strings.TrimRight(s.cfg.BasePath, "/")
	return s, nil
}

// Handler returns the full route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	base := s.cfg.BasePath

	s.route(mux, "POST "+base+"/register", s.handleRegister)
	s.route(mux, "POST "+base+"/login", s.handleLogin)
	s.route(mux, "POST "+base+"/refresh", s.handleRefresh)
	s.route(mux, "POST "+base+"/logout", s.handleLogout)
	s.route(mux, "GET "+base+"/me", s.handleMe)
	s.route(mux, "POST "+base+"/password-reset/request", s.handleResetRequest)
	s.route(mux, "POST "+base+"/password-reset/confirm", s.handleResetConfirm)
	s.route(mux, "GET "+base+"/{provider}/login", s.handleProviderLogin)
	s.route(mux, "GET "+base+"/{provider}/callback", s.handleProviderCallback)
	s.route(mux, "POST "+base+"/{provider}/token", s.handleProviderToken)
	s.route(mux, "GET /health", s.handleHealth)
	mux.HandleFunc("/", s.handleNotFound)

	return chain(mux, s.observe, s.recoverPanics, s.deadline, s.limitBody, s.rateLimit)
}

// route registers h and reports the matched pattern to the observe
// middleware.
func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		if info := infoFrom(r.Context()); info != nil {
			info.route = pattern
		}
		h(w, r)
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusNotFound, ErrorBody{Error: "NotFound", Detail: "Not found"})
}

// HTTPServer returns an http.Server bound to the configured address and
// timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
}
