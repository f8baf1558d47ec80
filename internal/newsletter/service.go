// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package newsletter

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/inkletter/inkletter/internal/email"
	"github.com/inkletter/inkletter/internal/observability"
	"github.com/inkletter/inkletter/internal/subscription"
	"github.com/inkletter/inkletter/pkg/errutil"
)

// SubscriberSource lists the recipients of a broadcast.
type SubscriberSource interface {
	// ConfirmedEmails returns the stored emails of all confirmed subscribers.
	ConfirmedEmails(ctx context.Context) ([]string, error)
}

// Report summarizes a finished broadcast.
type Report struct {
	Sent    int
	Skipped int
}

// Service broadcasts newsletter issues to confirmed subscribers.
type Service struct {
	source  SubscriberSource
	sender  email.Sender
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. metrics may be nil when the observability
// server is not running.
func NewService(source SubscriberSource, sender email.Sender, logger *slog.Logger, metrics *observability.Metrics) (*Service, error) {
	if source == nil {
		return nil, oops.Errorf("subscriber source is required")
	}
	if sender == nil {
		return nil, oops.Errorf("email sender is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		source:  source,
		sender:  sender,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Publish sends the issue to every confirmed subscriber. Stored emails that
// no longer parse are logged and skipped; a delivery failure aborts the run
// with recipients already emailed staying emailed.
func (s *Service) Publish(ctx context.Context, issue Issue) (Report, error) {
	var report Report

	if err := issue.Validate(); err != nil {
		return report, err
	}

	recipients, err := s.source.ConfirmedEmails(ctx)
	if err != nil {
		return report, oops.Code("PUBLISH_FAILED").
			With("operation", "list confirmed subscribers").
			Wrap(err)
	}

	for _, stored := range recipients {
		addr, parseErr := subscription.ParseEmail(stored)
		if parseErr != nil {
			// Rows written before validation tightened can hold anything.
			errutil.LogWarn(s.logger, "skipping confirmed subscriber with invalid stored email",
				oops.Code("SUBSCRIBER_EMAIL_INVALID").Wrap(parseErr))
			report.Skipped++
			continue
		}

		if sendErr := s.sender.Send(ctx, addr, issue.Title, issue.HTML, issue.Text); sendErr != nil {
			observability.RecordEmailSendFailure("newsletter")
			return report, oops.Code("PUBLISH_FAILED").
				With("operation", "send newsletter issue").
				With("sent", report.Sent).
				Wrap(sendErr)
		}
		report.Sent++
		if s.metrics != nil {
			s.metrics.NewsletterEmailsSent.Inc()
		}
	}

	s.logger.InfoContext(ctx, "newsletter issue published",
		"title", issue.Title,
		"sent", report.Sent,
		"skipped", report.Skipped,
	)
	return report, nil
}
