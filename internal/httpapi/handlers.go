// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package httpapi exposes the public HTTP surface: subscription signup and
// confirmation, newsletter publishing, and the health check.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/inkletter/inkletter/internal/newsletter"
	"github.com/inkletter/inkletter/internal/observability"
	"github.com/inkletter/inkletter/internal/subscription"
)

// SubscriptionService is the part of the subscription domain the handlers use.
type SubscriptionService interface {
	Subscribe(ctx context.Context, name, email string) error
	Confirm(ctx context.Context, token string) error
}

// NewsletterService publishes issues to confirmed subscribers.
type NewsletterService interface {
	Publish(ctx context.Context, issue newsletter.Issue) (newsletter.Report, error)
}

// handlers holds the services behind the HTTP surface.
type handlers struct {
	subscriptions SubscriptionService
	newsletters   NewsletterService
	logger        *slog.Logger
	metrics       *observability.Metrics
}

func (h *handlers) countSubscription(outcome string) {
	if h.metrics != nil {
		h.metrics.SubscriptionsTotal.WithLabelValues(outcome).Inc()
	}
}

func (h *handlers) countConfirmation() {
	if h.metrics != nil {
		h.metrics.ConfirmationsTotal.Inc()
	}
}

// handleHealthCheck answers 200 with an empty body.
func (h *handlers) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleSubscribe accepts an application/x-www-form-urlencoded body with
// "name" and "email" fields.
func (h *handlers) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, h.logger, "malformed subscription form",
			oops.Code("VALIDATION_FAILED").Wrap(err))
		return
	}

	name := r.PostForm.Get("name")
	email := r.PostForm.Get("email")

	if err := h.subscriptions.Subscribe(r.Context(), name, email); err != nil {
		h.countSubscription("failure")
		writeError(w, h.logger, "subscription failed", err)
		return
	}
	h.countSubscription("success")
	w.WriteHeader(http.StatusOK)
}

// handleConfirm resolves the subscription_token query parameter and marks the
// subscriber confirmed.
func (h *handlers) handleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("subscription_token")
	if token == "" {
		writeError(w, h.logger, "rejected confirmation request",
			oops.Code("VALIDATION_FAILED").Errorf("subscription_token is missing"))
		return
	}
	// A token that cannot exist is reported the same way as one that does
	// not exist, so callers cannot probe which tokens are plausible.
	if !subscription.ValidTokenFormat(token) {
		writeError(w, h.logger, "rejected confirmation token",
			oops.Code("TOKEN_NOT_FOUND").Errorf("unknown subscription token"))
		return
	}

	if err := h.subscriptions.Confirm(r.Context(), token); err != nil {
		writeError(w, h.logger, "confirmation failed", err)
		return
	}
	h.countConfirmation()
	w.WriteHeader(http.StatusOK)
}

// publishRequest is the JSON body of POST /newsletters.
type publishRequest struct {
	Title   string `json:"title"`
	Content struct {
		HTML string `json:"html"`
		Text string `json:"text"`
	} `json:"content"`
}

// handlePublish broadcasts a newsletter issue. Requires Basic auth, enforced
// by the basicAuth middleware before this handler runs.
func (h *handlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, "malformed publish request",
			oops.Code("VALIDATION_FAILED").Wrap(err))
		return
	}

	issue := newsletter.Issue{
		Title: req.Title,
		HTML:  req.Content.HTML,
		Text:  req.Content.Text,
	}
	if _, err := h.newsletters.Publish(r.Context(), issue); err != nil {
		writeError(w, h.logger, "newsletter publish failed", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
