// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/holomush/authsvc/internal/auth"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := s.validate.decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	user, err := s.svc.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// handleLogin takes an OAuth2 password-grant style form: username, password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(r.Context(), w, s.logger, auth.ValidationError("body", "request body must be a form"))
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		writeError(r.Context(), w, s.logger, auth.ValidationError("body", "username and password are required"))
		return
	}
	pair, err := s.svc.Login(r.Context(), username, password)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.setSession(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := s.validate.decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	pair, err := s.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.setSession(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := s.bearer(r)
	if !ok {
		writeError(r.Context(), w, s.logger, auth.InvalidTokenError())
		return
	}
	if err := s.svc.Logout(r.Context(), token); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.clearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := s.bearer(r)
	if !ok {
		writeError(r.Context(), w, s.logger, auth.InvalidTokenError())
		return
	}
	user, err := s.svc.CurrentUser(r.Context(), token)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleResetRequest answers 202 whatever the address, so the response
// does not reveal which emails are registered. Only outages surface.
func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := s.validate.decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	if err := s.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"detail": "If the account exists, a reset link has been sent",
	})
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := s.validate.decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	if err := s.svc.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "Password updated"})
}

func (s *Server) handleProviderLogin(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.svc.AuthorizationURL(r.PathValue("provider"))
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"authorization_url": authURL})
}

func (s *Server) handleProviderCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(r.Context(), w, s.logger, auth.ValidationError("code", "code is required"))
		return
	}
	pair, err := s.svc.LoginWithProvider(r.Context(), r.PathValue("provider"), code)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.setSession(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

func (s *Server) handleProviderToken(w http.ResponseWriter, r *http.Request) {
	var req providerTokenRequest
	if err := s.validate.decodeBody(r, &req); err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	pair, err := s.svc.LoginWithProviderToken(r.Context(), r.PathValue("provider"), req.Token)
	if err != nil {
		writeError(r.Context(), w, s.logger, err)
		return
	}
	s.setSession(w, pair)
	writeJSON(w, http.StatusOK, pair)
}

// HealthBody reports dependency state. The endpoint always answers 200 so
// a degraded start stays observable.
type HealthBody struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Cache    string `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	body := HealthBody{
		Status:   "ok",
		Database: s.probe(ctx, "database"),
		Cache:    s.probe(ctx, "cache"),
	}
	if body.Database != "ok" || body.Cache != "ok" {
		body.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) probe(ctx context.Context, name string) string {
	check, ok := s.checks[name]
	if !ok {
		return "unknown"
	}
	if err := check(ctx); err != nil {
		s.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
		return "unavailable"
	}
	return "ok"
}

// bearer extracts the access token from the Authorization header, falling
// back to the session cookie when one is configured.
func (s *Server) bearer(r *http.Request) (string, bool) {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") {
			return "", false
		}
		token = strings.TrimSpace(token)
		return token, token != ""
	}
	if s.cfg.SessionCookie != "" {
		if c, err := r.Cookie(s.cfg.SessionCookie); err == nil && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}

func (s *Server) setSession(w http.ResponseWriter, pair auth.TokenPair) {
	if s.cfg.SessionCookie == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    pair.AccessToken,
		Path:     "/",
		MaxAge:   int(pair.ExpiresIn),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSession(w http.ResponseWriter) {
	if s.cfg.SessionCookie == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cfg.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
