// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package federation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
)

// Credential selects which token from a code exchange the verification
// endpoint accepts.
type Credential int

// Credential kinds.
const (
	CredentialAccessToken Credential = iota
	CredentialIDToken
)

// Profile is the minimal identity a provider vouches for.
type Profile struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ClaimMapper turns a verification response body into a Profile.
type ClaimMapper func(p *Provider, body []byte) (Profile, error)

// Provider is one federation partner: where to send users to authorize,
// where to verify the credential they come back with, and how to read the
// answer.
type Provider struct {
	Tag         string
	OAuth       oauth2.Config
	VerifyURL   string
	VerifyParam string
	VerifyQuery url.Values
	// ProofParam, when set, names the query parameter carrying
	// HMAC-SHA256(client secret, credential). The provider rejects
	// credentials issued to other clients when the proof does not match.
	ProofParam string
	Credential Credential
	MapClaims  ClaimMapper
}

// Implemented reports whether credential verification is wired for p.
func (p *Provider) Implemented() bool {
	return p.VerifyURL != "" && p.MapClaims != nil
}

// verificationURL renders the verification request for credential.
func (p *Provider) verificationURL(credential string) (string, error) {
	u, err := url.Parse(p.VerifyURL)
	if err != nil {
		return "", oops.With("verify_url", p.VerifyURL).Wrap(err)
	}
	q := u.Query()
	for k, vs := range p.VerifyQuery {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set(p.VerifyParam, credential)
	if p.ProofParam != "" {
		q.Set(p.ProofParam, p.proof(credential))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// proof binds credential to this client's secret.
func (p *Provider) proof(credential string) string {
	mac := hmac.New(sha256.New, []byte(p.OAuth.ClientSecret))
	mac.Write([]byte(credential))
	return hex.EncodeToString(mac.Sum(nil))
}

// Settings is the client registration for one provider. Empty endpoint
// fields fall back to the provider's public defaults.
type Settings struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
	VerifyURL    string
}

// Well-known endpoints.
const (
	GoogleAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	GoogleTokenURL    = "https://oauth2.googleapis.com/token"
	GoogleTokenInfo   = "https://oauth2.googleapis.com/tokeninfo"
	FacebookAuthURL   = "https://www.facebook.com/v19.0/dialog/oauth"
	FacebookTokenURL  = "https://graph.facebook.com/v19.0/oauth/access_token"
	FacebookProfile   = "https://graph.facebook.com/me"
	googleIssuer      = "accounts.google.com"
	googleIssuerHTTPS = "https://accounts.google.com"
)

// Build returns the Provider for tag. google and facebook have built-in
// endpoints and claim mappers; any other tag needs AuthURL and TokenURL and
// is registered without verification, so logins through it report
// NotImplemented.
func Build(tag string, s Settings) (*Provider, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return nil, oops.Code("PROVIDER_CONFIG_INVALID").Errorf("provider tag is required")
	}
	if s.ClientID == "" {
		return nil, oops.Code("PROVIDER_CONFIG_INVALID").With("provider", tag).Errorf("client id is required")
	}

	p := &Provider{
		Tag: tag,
		OAuth: oauth2.Config{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			RedirectURL:  s.RedirectURI,
			Scopes:       s.Scopes,
		},
	}

	switch tag {
	case "google":
		p.OAuth.Endpoint = oauth2.Endpoint{
			AuthURL:   or(s.AuthURL, GoogleAuthURL),
			TokenURL:  or(s.TokenURL, GoogleTokenURL),
			AuthStyle: oauth2.AuthStyleInParams,
		}
		if len(p.OAuth.Scopes) == 0 {
			p.OAuth.Scopes = []string{"openid", "email", "profile"}
		}
		p.VerifyURL = or(s.VerifyURL, GoogleTokenInfo)
		p.VerifyParam = "id_token"
		p.Credential = CredentialIDToken
		p.MapClaims = mapGoogle
	case "facebook":
		if s.ClientSecret == "" {
			return nil, oops.Code("PROVIDER_CONFIG_INVALID").
				With("provider", tag).
				Errorf("client secret is required to bind tokens to this app")
		}
		p.OAuth.Endpoint = oauth2.Endpoint{
			AuthURL:   or(s.AuthURL, FacebookAuthURL),
			TokenURL:  or(s.TokenURL, FacebookTokenURL),
			AuthStyle: oauth2.AuthStyleInParams,
		}
		if len(p.OAuth.Scopes) == 0 {
			p.OAuth.Scopes = []string{"email", "public_profile"}
		}
		p.VerifyURL = or(s.VerifyURL, FacebookProfile)
		p.VerifyParam = "access_token"
		p.VerifyQuery = url.Values{"fields": {"id,name,email"}}
		p.ProofParam = "appsecret_proof"
		p.Credential = CredentialAccessToken
		p.MapClaims = mapFacebook
	default:
		if s.AuthURL == "" || s.TokenURL == "" {
			return nil, oops.Code("PROVIDER_CONFIG_INVALID").
				With("provider", tag).
				Errorf("auth_url and token_url are required for custom providers")
		}
		p.OAuth.Endpoint = oauth2.Endpoint{AuthURL: s.AuthURL, TokenURL: s.TokenURL}
	}
	return p, nil
}

func mapGoogle(p *Provider, body []byte) (Profile, error) {
	var claims struct {
		Iss           string `json:"iss"`
		Aud           string `json:"aud"`
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified string `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return Profile{}, oops.With("operation", "decode tokeninfo").Wrap(err)
	}
	if claims.Aud != p.OAuth.ClientID {
		return Profile{}, oops.With("aud", claims.Aud).Errorf("token was issued to another client")
	}
	if claims.Iss != "" && claims.Iss != googleIssuer && claims.Iss != googleIssuerHTTPS {
		return Profile{}, oops.With("iss", claims.Iss).Errorf("unexpected issuer")
	}
	verified := claims.EmailVerified == "true"
	email := claims.Email
	if !verified {
		email = ""
	}
	return Profile{
		Provider:      p.Tag,
		Subject:       claims.Sub,
		Email:         email,
		EmailVerified: verified,
		Name:          claims.Name,
	}, nil
}

func mapFacebook(p *Provider, body []byte) (Profile, error) {
	var claims struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &claims); err != nil {
		return Profile{}, oops.With("operation", "decode profile").Wrap(err)
	}
	return Profile{
		Provider:      p.Tag,
		Subject:       claims.ID,
		Email:         claims.Email,
		EmailVerified: claims.Email != "",
		Name:          claims.Name,
	}, nil
}

func or(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
