// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package main

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkletter/inkletter/internal/config"
	"github.com/inkletter/inkletter/internal/email"
	"github.com/inkletter/inkletter/internal/observability"
	"github.com/inkletter/inkletter/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All nil fields fall back to their default implementations.
type ServeDeps struct {
	// ConfigLoader loads the application configuration.
	// Default: config.Load with the global --config flag.
	ConfigLoader func() (*config.Config, error)

	// PoolFactory opens the database connection pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, url string) (*pgxpool.Pool, error)

	// SenderFactory builds the outbound email sender from config.
	// Default: email.NewClient, or email.LogSender when dev_log is set.
	SenderFactory func(cfg config.EmailConfig) (email.Sender, error)

	// ObservabilityServerFactory creates the metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// APIServerFactory creates the public API server.
	// Default: httpapi.NewServer
	APIServerFactory func(addr string, handler http.Handler) APIServer
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// APIServer wraps the methods used from httpapi.Server.
type APIServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// MigratorFactory creates a schema migrator. Used by the migrate command.
type MigratorFactory func(databaseURL string) (SchemaMigrator, error)

// SchemaMigrator wraps the methods used from store.Migrator.
type SchemaMigrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	Close() error
	PendingMigrations() ([]uint, error)
}

func defaultMigratorFactory(databaseURL string) (SchemaMigrator, error) {
	return store.NewMigrator(databaseURL)
}
