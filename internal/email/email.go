// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package email provides outbound email delivery behind a provider-agnostic
// Sender interface. The production implementation speaks a Postmark-style
// HTTP API; a log-only sender covers local development.
package email

import "context"

// Sender performs one delivery attempt per call. Implementations must be
// safe for concurrent use; a single Sender is shared across all requests.
type Sender interface {
	// Send delivers one email with both HTML and plain-text bodies.
	Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error
}
