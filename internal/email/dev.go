// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package email

import (
	"context"
	"log/slog"
)

// LogSender logs messages instead of delivering them. It is selected when no
// provider token is configured so local runs don't need an email account.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender. A nil logger uses slog.Default.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the message and reports success.
func (s *LogSender) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	s.logger.InfoContext(ctx, "email delivery skipped (dev sender)",
		"recipient", recipient,
		"subject", subject,
		"text_bytes", len(textBody),
		"html_bytes", len(htmlBody),
	)
	return nil
}

// Compile-time interface check.
var _ Sender = (*LogSender)(nil)
