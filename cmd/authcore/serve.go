// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authcore/internal/auth"
	"github.com/holomush/authcore/internal/auth/memory"
	"github.com/holomush/authcore/internal/auth/postgres"
	"github.com/holomush/authcore/internal/config"
	"github.com/holomush/authcore/internal/logging"
	"github.com/holomush/authcore/internal/observability"
	"github.com/holomush/authcore/internal/store"
	"github.com/holomush/authcore/internal/web"
	"github.com/holomush/authcore/pkg/errutil"
)

// serviceName identifies this process in logs.
const serviceName = "authcore"

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP server",
		Long: `Start the HTTP server exposing registration, sign-in, sign-out and
session introspection, plus the metrics and health endpoints.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
}

// accountStore is an opened account repository and its lifecycle hooks.
type accountStore struct {
	repo  auth.AccountRepository
	ready observability.ReadinessChecker
	close func()
}

// runServeWithDeps serves until ctx is cancelled or SIGINT/SIGTERM arrives.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()
	if ctx == nil {
		ctx = context.Background()
	}

	path, err := resolveConfigFile()
	if err != nil {
		return err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return err
	}

	logger := logging.SetDefault(serviceName, version, logging.Options{
		Format: cfg.Log.Format,
		Level:  cfg.Log.Level,
		Writer: cmd.ErrOrStderr(),
	})
	logger.Info("starting authcore",
		"http_addr", cfg.HTTP.Addr,
		"store", cfg.Store,
		"deployment_mode", cfg.Auth.DeploymentMode,
		"hash_algorithm", cfg.Hash.Algorithm,
	)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, err := openAccountStore(ctx, cfg, deps, logger)
	if err != nil {
		return err
	}
	defer accounts.close()

	registry := observability.NewRegistry()
	metrics := observability.NewMetrics(registry)

	svc, err := buildService(cfg, accounts.repo, logger, metrics)
	if err != nil {
		return err
	}
	validator, err := web.NewRequestValidator()
	if err != nil {
		return oops.With("operation", "compile request schemas").Wrap(err)
	}
	handler, err := web.NewHandler(svc, validator, web.WithLogger(logger), web.WithObserver(metrics))
	if err != nil {
		return err
	}

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, registry, accounts.ready)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		ctx = watchServer(ctx, obsErrCh, "observability", logger)
	}

	listener, err := deps.Listen("tcp", cfg.HTTP.Addr)
	if err != nil {
		stopObservability(obsServer, cfg, logger)
		return oops.With("addr", cfg.HTTP.Addr).Wrapf(err, "listen")
	}

	srv := web.NewServer(&cfg.HTTP, handler.Routes())
	serveErrCh := make(chan error, 1)
	go func() {
		defer close(serveErrCh)
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			serveErrCh <- serveErr
		}
	}()

	cmd.Println("authcore listening on", listener.Addr().String())
	logger.Info("authcore ready", "http_addr", listener.Addr().String())

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down", "reason", context.Cause(ctx))
	case serveErr := <-serveErrCh:
		runErr = oops.With("operation", "serve http").Wrap(serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errutil.LogError(logger, "http shutdown failed", err)
	}
	stopObservability(obsServer, cfg, logger)

	logger.Info("shutdown complete")
	return runErr
}

// openAccountStore opens the configured repository, running migrations
// first when auto-migration is enabled.
func openAccountStore(ctx context.Context, cfg *config.Config, deps *ServeDeps, logger *slog.Logger) (*accountStore, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using the in-memory account store; accounts are lost on exit")
		return &accountStore{repo: memory.NewAccountRepository(), close: func() {}}, nil
	}

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return nil, err
		}
	}

	pool, err := deps.PoolOpener(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return nil, err
	}
	logger.Info("connected to database")

	return &accountStore{
		repo:  postgres.NewAccountRepository(pool),
		ready: store.ReadinessCheck(pool, cfg.Database.Timeout),
		close: pool.Close,
	}, nil
}

func autoMigrate(deps *ServeDeps, url string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(url)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			errutil.LogError(logger, "closing migrator failed", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return err
	}
	version, _, err := migrator.Version()
	if err != nil {
		return err
	}
	logger.Info("database migrations applied", "version", version)
	return nil
}

// buildService assembles the authentication core from cfg. The same
// AuthConfig feeds the token issuer and the cookie policy.
func buildService(cfg *config.Config, repo auth.AccountRepository, logger *slog.Logger, observer auth.Observer) (*auth.Service, error) {
	dir, err := auth.NewDirectory(repo, &cfg.Database)
	if err != nil {
		return nil, err
	}
	hasher, err := auth.NewPasswordHasher(&cfg.Hash)
	if err != nil {
		return nil, err
	}
	tokens, err := auth.NewTokenIssuer(&cfg.Auth)
	if err != nil {
		return nil, err
	}
	return auth.NewService(dir, hasher, tokens, auth.NewCookiePolicy(&cfg.Auth),
		auth.WithLogger(logger),
		auth.WithObserver(observer),
	)
}

// watchServer returns a context cancelled when errCh delivers an error.
func watchServer(ctx context.Context, errCh <-chan error, name string, logger *slog.Logger) context.Context {
	ctx, cancel := context.WithCancelCause(ctx)
	go func() {
		select {
		case err, ok := <-errCh:
			if ok && err != nil {
				logger.Error("server error, triggering shutdown", "server", name, "error", err)
				cancel(oops.With("server", name).Wrap(err))
			}
		case <-ctx.Done():
		}
	}()
	return ctx
}

func stopObservability(srv ObservabilityServer, cfg *config.Config, logger *slog.Logger) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		errutil.LogError(logger, "stopping observability server failed", err)
	}
}
