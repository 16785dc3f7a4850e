// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/authsvc/internal/auth"
	"github.com/holomush/authsvc/internal/auth/postgres"
	"github.com/holomush/authsvc/internal/cache"
	"github.com/holomush/authsvc/internal/config"
	"github.com/holomush/authsvc/internal/federation"
	"github.com/holomush/authsvc/internal/httpapi"
	"github.com/holomush/authsvc/internal/logging"
	"github.com/holomush/authsvc/internal/observability"
	"github.com/holomush/authsvc/internal/ratelimit"
	"github.com/holomush/authsvc/internal/store"
	"github.com/holomush/authsvc/pkg/errutil"
)

// purgeInterval is how often expired password resets are deleted.
const purgeInterval = time.Hour

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the public auth API and, when metrics.addr is set, the metrics and
health listener. The server starts even when PostgreSQL or Redis is
unreachable; affected requests answer 503 until the dependency recovers.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			level, err := logging.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logger := logging.SetDefault("authsvc", version, cfg.Log.Format, level)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, logger, deps)
		},
	}
}

// runServe wires every component from cfg and serves until ctx ends or a
// listener fails.
func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger, deps *ServeDeps) error {
	deps = deps.withDefaults()

	db, err := deps.DatabaseFactory(ctx, cfg.Database)
	if err != nil {
		return oops.With("operation", "open database").Wrap(err)
	}
	defer db.Close()

	redisClient, err := deps.CacheFactory(cfg.Cache)
	if err != nil {
		return oops.With("operation", "open cache").Wrap(err)
	}
	defer func() {
		if closeErr := redisClient.Close(); closeErr != nil {
			logger.Warn("error closing cache", "error", closeErr)
		}
	}()

	probeDependencies(ctx, cfg.Startup, logger, map[string]store.Pinger{
		"postgres": db,
		"redis":    redisClient,
	})

	checks := map[string]observability.Check{
		"postgres": db.Ping,
		"redis":    redisClient.Ping,
	}
	obs := observability.NewServer(cfg.Metrics.Addr, checks, logger)

	svc, err := buildService(cfg, db, redisClient, obs.Metrics(), logger)
	if err != nil {
		return err
	}

	limiter, err := ratelimit.New(cache.NewCounter(redisClient), cfg.RateLimit)
	if err != nil {
		return err
	}
	api, err := httpapi.NewServer(httpapi.Options{
		Config:  cfg.HTTP,
		Service: svc,
		Limiter: limiter,
		Metrics: obs.Metrics(),
		Checks:  map[string]observability.Check{"database": db.Ping, "cache": redisClient.Ping},
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	ln, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}
	httpSrv := api.HTTPServer()

	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		obsErrCh, err = obs.Start()
		if err != nil {
			_ = ln.Close()
			return oops.With("operation", "start observability server").Wrap(err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if serveErr := httpSrv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return oops.With("operation", "serve api").Wrap(serveErr)
		}
		return nil
	})
	g.Go(func() error {
		return watchErrors(gctx, obsErrCh)
	})
	g.Go(func() error {
		purgeLoop(gctx, svc, purgeInterval, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("error stopping api server", "error", err)
		}
		if err := obs.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
		return nil
	})

	logger.Info("authsvc ready",
		"addr", ln.Addr().String(),
		"profile", cfg.Profile,
		"base_path", cfg.HTTP.BasePath,
		"rate_limit", cfg.RateLimit.Limit)
	deps.OnReady(ln.Addr().String())

	if err := g.Wait(); err != nil {
		errutil.LogError(logger, "server stopped with error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// buildService assembles the auth orchestrator over the shared stores.
func buildService(cfg *config.Config, db postgres.DB, redisClient *cache.Client,
	metrics *observability.Metrics, logger *slog.Logger,
) (*auth.Service, error) {
	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:     []byte(cfg.Token.SecretKey),
		Algorithm:  cfg.Token.Algorithm,
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	}, cache.NewDenylist(redisClient))
	if err != nil {
		return nil, err
	}

	hashes, err := auth.NewHashPool(auth.NewArgon2idHasher(), cfg.Hashing.Workers)
	if err != nil {
		return nil, err
	}

	fed, err := federation.FromConfig(cfg.OAuth)
	if err != nil {
		return nil, err
	}
	logger.Info("oauth providers registered", "providers", fed.Providers())

	return auth.NewService(auth.ServiceConfig{
		Users:         postgres.NewUserRepository(db),
		Resets:        postgres.NewPasswordResetRepository(db),
		Tx:            postgres.NewTransactor(db),
		Hashes:        hashes,
		Tokens:        tokens,
		Federation:    fed,
		Notifier:      auth.NewLogNotifier(logger, cfg.PasswordReset.LogLinks),
		Events:        metrics,
		Logger:        logger,
		ResetTTL:      cfg.PasswordReset.TTL,
		ResetLinkBase: cfg.PasswordReset.LinkBaseURL,
	})
}

// probeDependencies pings every dependency with bounded backoff. Failures
// are logged and the server starts degraded.
func probeDependencies(ctx context.Context, cfg config.StartupConfig, logger *slog.Logger, deps map[string]store.Pinger) {
	var g errgroup.Group
	for name, p := range deps {
		g.Go(func() error {
			if err := store.WaitReady(ctx, name, p, cfg.PingAttempts, cfg.PingBackoff, logger); err != nil {
				logger.Warn("dependency unavailable, starting degraded", "dependency", name, "error", err)
				return nil
			}
			logger.Info("dependency ready", "dependency", name)
			return nil
		})
	}
	_ = g.Wait()
}

// watchErrors returns the first error from errCh, or nil when ctx ends or
// the channel closes.
func watchErrors(ctx context.Context, errCh <-chan error) error {
	if errCh == nil {
		<-ctx.Done()
		return nil
	}
	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return oops.With("operation", "serve observability").Wrap(err)
	}
}

type resetPurger interface {
	PurgeExpiredResets(ctx context.Context) (int64, error)
}

// purgeLoop deletes expired resets every interval until ctx ends.
func purgeLoop(ctx context.Context, p resetPurger, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpiredResets(ctx)
			if err != nil {
				logger.Warn("purging expired password resets failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("purged expired password resets", "count", n)
			}
		}
	}
}
