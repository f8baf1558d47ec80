// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkletter/inkletter/internal/auth"
	authpg "github.com/inkletter/inkletter/internal/auth/postgres"
	"github.com/inkletter/inkletter/internal/config"
	"github.com/inkletter/inkletter/internal/email"
	"github.com/inkletter/inkletter/internal/httpapi"
	"github.com/inkletter/inkletter/internal/logging"
	"github.com/inkletter/inkletter/internal/newsletter"
	"github.com/inkletter/inkletter/internal/observability"
	"github.com/inkletter/inkletter/internal/store"
	"github.com/inkletter/inkletter/internal/subscription"
	subpg "github.com/inkletter/inkletter/internal/subscription/postgres"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the newsletter HTTP service",
		Long: `Start the newsletter service: the public HTTP API for subscriptions
and publishing, and optionally a metrics/health listener.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("server.addr", "", "API listen address")
	cmd.Flags().String("server.base_url", "", "externally reachable base URL for confirmation links")
	cmd.Flags().String("observability.addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().Bool("email.dev_log", false, "log outbound emails instead of delivering them")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ConfigLoader == nil {
		deps.ConfigLoader = func() (*config.Config, error) {
			return config.Load(configFile, cmd.Flags())
		}
	}
	if deps.PoolFactory == nil {
		deps.PoolFactory = store.Connect
	}
	if deps.SenderFactory == nil {
		deps.SenderFactory = defaultSenderFactory
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, checker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, checker)
		}
	}
	if deps.APIServerFactory == nil {
		deps.APIServerFactory = func(addr string, handler http.Handler) APIServer {
			return httpapi.NewServer(addr, handler)
		}
	}

	cfg, err := deps.ConfigLoader()
	if err != nil {
		return err
	}

	logging.SetDefault("inkletter", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	logger := slog.Default()

	logger.Info("starting newsletter service",
		"addr", cfg.Server.Addr,
		"base_url", cfg.Server.BaseURL,
	)

	pool, err := deps.PoolFactory(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	sender, err := deps.SenderFactory(cfg.Email)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Observability first so domain services can record metrics.
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Observability.Addr != "" {
		readiness := func() bool {
			pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
			defer pingCancel()
			return pool.Ping(pingCtx) == nil
		}
		obsServer = deps.ObservabilityServerFactory(cfg.Observability.Addr, readiness)
		obsErrChan, obsErr := obsServer.Start()
		if obsErr != nil {
			return oops.With("operation", "start observability server").Wrap(obsErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	subscriberRepo := subpg.NewSubscriberRepository(pool)
	subscriptionSvc, err := subscription.NewService(subscriberRepo, sender, cfg.Server.BaseURL, logger)
	if err != nil {
		return err
	}

	newsletterSvc, err := newsletter.NewService(subscriberRepo, sender, logger, metrics)
	if err != nil {
		return err
	}

	credentialRepo := authpg.NewCredentialRepository(pool)
	validator, err := auth.NewValidator(credentialRepo, auth.NewArgon2idHasher())
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(&httpapi.RouterDeps{
		Subscriptions: subscriptionSvc,
		Newsletters:   newsletterSvc,
		Credentials:   validator,
		Logger:        logger,
		Metrics:       metrics,
	})

	apiServer := deps.APIServerFactory(cfg.Server.Addr, router)
	apiErrChan, err := apiServer.Start()
	if err != nil {
		stopObservability(obsServer, logger)
		return oops.With("operation", "start api server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, apiErrChan, "api")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Newsletter service started")
	logger.Info("newsletter service ready", "addr", apiServer.Addr())

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	stopObservability(obsServer, logger)

	logger.Info("shutdown complete")
	return nil
}

func stopObservability(obsServer ObservabilityServer, logger *slog.Logger) {
	if obsServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := obsServer.Stop(ctx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}
}

func defaultSenderFactory(cfg config.EmailConfig) (email.Sender, error) {
	if cfg.DevLog {
		return email.NewLogSender(slog.Default()), nil
	}
	return email.NewClient(cfg.APIURL, cfg.Token, cfg.Sender)
}

// monitorServerErrors watches a server's error channel and cancels the
// context on failure so the whole process shuts down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
