// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes every environment variable read by Load. Nested keys are
// separated by a double underscore: AUTHSVC_TOKEN__ACCESS_TTL=15m.
const EnvPrefix = "AUTHSVC_"

// legacyEnv maps unprefixed variable names used by earlier deployments to
// config keys. Values under minuteKeys are whole minutes.
var legacyEnv = map[string]string{
	"ENVIRONMENT":                 "profile",
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "cache.url",
	"SECRET_KEY":                  "token.secret_key",
	"ALGORITHM":                   "token.algorithm",
	"ACCESS_TOKEN_EXPIRE_MINUTES": "token.access_ttl",
	"RATE_LIMIT_PER_MINUTE":       "rate_limit.limit",
	"GOOGLE_CLIENT_ID":            "oauth.providers.google.client_id",
	"GOOGLE_CLIENT_SECRET":        "oauth.providers.google.client_secret",
	"GOOGLE_REDIRECT_URI":         "oauth.providers.google.redirect_uri",
	"FACEBOOK_CLIENT_ID":          "oauth.providers.facebook.client_id",
	"FACEBOOK_CLIENT_SECRET":      "oauth.providers.facebook.client_secret",
	"FACEBOOK_REDIRECT_URI":       "oauth.providers.facebook.redirect_uri",
}

var minuteKeys = map[string]bool{"token.access_ttl": true}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"profile":      "profile",
	"http-addr":    "http.addr",
	"metrics-addr": "metrics.addr",
	"log-format":   "log.format",
	"log-level":    "log.level",
	"database-url": "database.url",
	"cache-url":    "cache.url",
	"rate-limit":   "rate_limit.limit",
}

// BindFlags registers the flags that can override configuration keys.
// Flags only take effect when set explicitly.
func BindFlags(fs *pflag.FlagSet) {
	fs.String("profile", "", "deployment profile (development or production)")
	fs.String("http-addr", "", "public API listen address")
	fs.String("metrics-addr", "", "metrics/health HTTP address")
	fs.String("log-format", "", "log format (json or text)")
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("database-url", "", "PostgreSQL connection URL")
	fs.String("cache-url", "", "Redis connection URL")
	fs.Int64("rate-limit", 0, "requests per client and path per window")
}

// Load builds the effective configuration. Sources are applied in order:
// profile defaults, the YAML file at path (if non-empty), legacy environment
// variables, AUTHSVC_ environment variables, then changed flags in fs (if
// non-nil). The result is not validated; call Validate.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyValue), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "legacy env").Wrap(err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if fs != nil {
		if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagValue(fs)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	profile := strings.ToLower(strings.TrimSpace(k.String("profile")))
	if profile == "" {
		profile = ProfileDevelopment
	}
	cfg := Defaults(profile)
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("operation", "unmarshal").Wrap(err)
	}
	cfg.Profile = strings.ToLower(strings.TrimSpace(cfg.Profile))
	cfg.normalize()
	return &cfg, nil
}

func (c *Config) normalize() {
	c.HTTP.BasePath = "/" + strings.Trim(c.HTTP.BasePath, "/")
	for tag, p := range c.OAuth.Providers {
		p.Scopes = TrimList(p.Scopes)
		p.ClientID = strings.TrimSpace(p.ClientID)
		c.OAuth.Providers[tag] = p
	}
}

// envKey turns AUTHSVC_RATE_LIMIT__FAIL_OPEN into rate_limit.fail_open.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func legacyValue(name, value string) (string, any) {
	key, ok := legacyEnv[name]
	if !ok {
		return "", nil
	}
	if minuteKeys[key] {
		return key, strings.TrimSpace(value) + "m"
	}
	return key, value
}

func flagValue(fs *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok || !f.Changed {
			return "", nil
		}
		return key, posflag.FlagVal(fs, f)
	}
}
