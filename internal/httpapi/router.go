// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/inkletter/inkletter/internal/observability"
)

// RouterDeps bundles everything the router needs.
type RouterDeps struct {
	Subscriptions SubscriptionService
	Newsletters   NewsletterService
	Credentials   CredentialValidator
	Logger        *slog.Logger
	// Metrics may be nil when the observability server is disabled.
	Metrics *observability.Metrics
}

// NewRouter builds the public API router.
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := &handlers{
		subscriptions: deps.Subscriptions,
		newsletters:   deps.Newsletters,
		logger:        logger,
		metrics:       deps.Metrics,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger(logger, deps.Metrics))

	r.Get("/health_check", h.handleHealthCheck)

	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", h.handleSubscribe)
		r.Get("/confirm", h.handleConfirm)
	})

	r.Route("/newsletters", func(r chi.Router) {
		r.Use(basicAuth(deps.Credentials, logger))
		r.Post("/", h.handlePublish)
	})

	return r
}
