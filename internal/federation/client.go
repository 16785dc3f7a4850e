// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package federation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/oauth2"
)

// Error codes. The string values match the ones the auth service maps to
// HTTP statuses.
const (
	CodeVerificationFailed = "OAUTH_VERIFICATION_FAILED"
	CodeNotImplemented     = "OAUTH_NOT_IMPLEMENTED"
	CodeUnknownProvider    = "UNKNOWN_PROVIDER"
)

// maxVerifyBody caps how much of a verification response is read.
const maxVerifyBody = 1 << 20

// Outcome classifies a verification attempt.
type Outcome int

// Verification outcomes.
const (
	Verified Outcome = iota
	Failed
	NotImplemented
)

func (o Outcome) String() string {
	switch o {
	case Verified:
		return "verified"
	case Failed:
		return "failed"
	case NotImplemented:
		return "not_implemented"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is what a provider said about a credential. Err is set for Failed
// and NotImplemented and carries the matching code.
type Result struct {
	Outcome Outcome
	Profile Profile
	Err     error
}

// Identity returns the verified profile or the failure.
func (r Result) Identity() (Profile, error) {
	if r.Outcome == Verified {
		return r.Profile, nil
	}
	if r.Err != nil {
		return Profile{}, r.Err
	}
	return Profile{}, oops.Code(CodeVerificationFailed).Errorf("OAuth verification failed")
}

func failed(tag, reason string, err error) Result {
	b := oops.Code(CodeVerificationFailed).With("provider", tag).With("reason", reason)
	if err == nil {
		err = errors.New(reason)
	}
	return Result{Outcome: Failed, Err: b.Wrap(err)}
}

func notImplemented(tag string) Result {
	return Result{
		Outcome: NotImplemented,
		Err: oops.Code(CodeNotImplemented).
			With("provider", tag).
			Errorf("login with %s is not implemented", tag),
	}
}

// Client verifies credentials against the registered providers.
type Client struct {
	providers map[string]*Provider
	http      *http.Client
}

// NewClient returns a Client for providers. httpClient carries the request
// timeout; nil uses http.DefaultClient.
func NewClient(providers []*Provider, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{providers: make(map[string]*Provider, len(providers)), http: httpClient}
	for _, p := range providers {
		if p == nil {
			return nil, oops.Code("PROVIDER_CONFIG_INVALID").Errorf("nil provider")
		}
		if _, dup := c.providers[p.Tag]; dup {
			return nil, oops.Code("PROVIDER_CONFIG_INVALID").With("provider", p.Tag).Errorf("provider registered twice")
		}
		c.providers[p.Tag] = p
	}
	return c, nil
}

// Providers lists registered tags in sorted order.
func (c *Client) Providers() []string {
	tags := make([]string, 0, len(c.providers))
	for tag := range c.providers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Lookup returns the provider registered as tag.
func (c *Client) Lookup(tag string) (*Provider, error) {
	p, ok := c.providers[strings.ToLower(tag)]
	if !ok {
		return nil, oops.Code(CodeUnknownProvider).With("provider", tag).Errorf("unknown provider %q", tag)
	}
	return p, nil
}

// AuthorizationURL is where a browser is sent to start a login with tag.
func (c *Client) AuthorizationURL(tag string) (string, error) {
	p, err := c.Lookup(tag)
	if err != nil {
		return "", err
	}
	return p.OAuth.AuthCodeURL(""), nil
}

// ExchangeAndVerify asks the provider to vouch for credential with a single
// call to its verification endpoint. Unknown tags return an error; every
// other failure is reported through the Result.
func (c *Client) ExchangeAndVerify(ctx context.Context, tag, credential string) (Result, error) {
	p, err := c.Lookup(tag)
	if err != nil {
		return Result{}, err
	}
	if !p.Implemented() {
		return notImplemented(p.Tag), nil
	}
	if strings.TrimSpace(credential) == "" {
		return failed(p.Tag, "empty credential", nil), nil
	}
	return c.verify(ctx, p, credential), nil
}

// ExchangeCode trades an authorization code for provider tokens and then
// verifies the credential the provider expects.
func (c *Client) ExchangeCode(ctx context.Context, tag, code string) (Result, error) {
	p, err := c.Lookup(tag)
	if err != nil {
		return Result{}, err
	}
	if !p.Implemented() {
		return notImplemented(p.Tag), nil
	}
	if strings.TrimSpace(code) == "" {
		return failed(p.Tag, "missing authorization code", nil), nil
	}

	tok, err := p.OAuth.Exchange(context.WithValue(ctx, oauth2.HTTPClient, c.http), code)
	if err != nil {
		return failed(p.Tag, "code exchange", err), nil
	}

	credential := tok.AccessToken
	if p.Credential == CredentialIDToken {
		idToken, _ := tok.Extra("id_token").(string)
		if idToken == "" {
			return failed(p.Tag, "no id_token in token response", nil), nil
		}
		credential = idToken
	}
	return c.verify(ctx, p, credential), nil
}

func (c *Client) verify(ctx context.Context, p *Provider, credential string) Result {
	target, err := p.verificationURL(credential)
	if err != nil {
		return failed(p.Tag, "build verification request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return failed(p.Tag, "build verification request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return failed(p.Tag, "verification request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVerifyBody))
	if err != nil {
		return failed(p.Tag, "read verification response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return failed(p.Tag, fmt.Sprintf("verification status %d", resp.StatusCode), nil)
	}

	profile, err := p.MapClaims(p, body)
	if err != nil {
		return failed(p.Tag, "map claims", err)
	}
	if profile.Subject == "" {
		return failed(p.Tag, "no subject in profile", nil)
	}
	if profile.Email == "" {
		return failed(p.Tag, "no verified email in profile", nil)
	}
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	return Result{Outcome: Verified, Profile: profile}
}
