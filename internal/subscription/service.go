// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/samber/oops"

	"github.com/inkletter/inkletter/internal/email"
	"github.com/inkletter/inkletter/internal/observability"
)

// Service registers subscribers and confirms their email addresses.
type Service struct {
	repo    SubscriberRepository
	sender  email.Sender
	baseURL string
	logger  *slog.Logger
}

// NewService creates a Service. baseURL is the externally reachable root of
// this application, used to build confirmation links.
func NewService(repo SubscriberRepository, sender email.Sender, baseURL string, logger *slog.Logger) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("subscriber repository is required")
	}
	if sender == nil {
		return nil, oops.Errorf("email sender is required")
	}
	if baseURL == "" {
		return nil, oops.Errorf("base URL is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		sender:  sender,
		baseURL: baseURL,
		logger:  logger,
	}, nil
}

// Subscribe validates the form input, persists the subscriber with a fresh
// confirmation token in one transaction, and then attempts the confirmation
// email. A send failure is reported even though the registration is already
// durable; the subscriber stays pending and can re-subscribe for a new token.
func (s *Service) Subscribe(ctx context.Context, name, emailAddr string) error {
	sub, err := NewSubscriber(name, emailAddr)
	if err != nil {
		return err
	}

	token := GenerateToken()

	if err := s.repo.CreateWithToken(ctx, sub, token); err != nil {
		return oops.Code("SUBSCRIBE_FAILED").
			With("operation", "persist subscriber with token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "subscriber registered",
		"subscriber_id", sub.ID.String(),
		"status", sub.Status,
	)

	if err := s.sendConfirmationEmail(ctx, sub, token); err != nil {
		// The registration is committed; only the email attempt failed.
		observability.RecordEmailSendFailure("confirmation")
		return oops.Code("CONFIRMATION_EMAIL_FAILED").
			With("operation", "send confirmation email").
			With("subscriber_id", sub.ID.String()).
			Wrap(err)
	}

	return nil
}

// Confirm resolves a confirmation token and transitions its subscriber to
// confirmed. Repeated calls with the same token succeed; the token is never
// invalidated.
func (s *Service) Confirm(ctx context.Context, token string) error {
	id, err := s.repo.SubscriberIDByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("TOKEN_NOT_FOUND").
				Wrapf(err, "confirmation token is not recognized")
		}
		return oops.Code("CONFIRM_FAILED").
			With("operation", "resolve confirmation token").
			Wrap(err)
	}

	if err := s.repo.MarkConfirmed(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			// A token pointing at a missing subscriber is a data-integrity
			// violation, not a caller mistake.
			return oops.Code("CONFIRM_FAILED").
				With("operation", "mark subscriber confirmed").
				With("subscriber_id", id.String()).
				Wrapf(err, "token references a missing subscriber")
		}
		return oops.Code("CONFIRM_FAILED").
			With("operation", "mark subscriber confirmed").
			With("subscriber_id", id.String()).
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "subscriber confirmed", "subscriber_id", id.String())
	return nil
}

// ConfirmationLink builds the URL a subscriber visits to confirm.
func (s *Service) ConfirmationLink(token string) string {
	return fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", s.baseURL, url.QueryEscape(token))
}

func (s *Service) sendConfirmationEmail(ctx context.Context, sub *Subscriber, token string) error {
	link := s.ConfirmationLink(token)

	textBody := fmt.Sprintf(
		"Welcome to our newsletter!\nVisit %s to confirm your subscription.",
		link,
	)
	htmlBody := fmt.Sprintf(
		"Welcome to our newsletter!<br />Click <a href=%q>here</a> to confirm your subscription.",
		link,
	)

	return s.sender.Send(ctx, sub.Email, "Welcome!", htmlBody, textBody)
}
