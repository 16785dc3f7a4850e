// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package federation

import (
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/holomush/authsvc/internal/config"
)

// FromConfig builds a Client for every provider in cfg that has a client id.
func FromConfig(cfg config.OAuthConfig) (*Client, error) {
	tags := make([]string, 0, len(cfg.Providers))
	for tag := range cfg.Providers {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	providers := make([]*Provider, 0, len(tags))
	for _, tag := range tags {
		pc := cfg.Providers[tag]
		if strings.TrimSpace(pc.ClientID) == "" {
			continue
		}
		p, err := Build(tag, Settings{
			ClientID:     pc.ClientID,
			ClientSecret: pc.ClientSecret,
			RedirectURI:  pc.RedirectURI,
			Scopes:       trimScopes(pc.Scopes),
			AuthURL:      pc.AuthURL,
			TokenURL:     pc.TokenURL,
			VerifyURL:    pc.VerifyURL,
		})
		if err != nil {
			return nil, err
		}
		providers = append(providers, p)
	}

	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewClient(providers, &http.Client{Timeout: timeout})
}

func trimScopes(scopes []string) []string {
	var out []string
	for _, s := range scopes {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
