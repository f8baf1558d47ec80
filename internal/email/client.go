// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package email

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/samber/oops"
)

// Default timeout for one delivery attempt.
const defaultSendTimeout = 10 * time.Second

// Client sends email through a Postmark-compatible HTTP API.
type Client struct {
	apiURL      string
	serverToken string
	sender      string
	httpClient  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a Client. apiURL is the provider base URL (e.g.
// "https://api.postmarkapp.com"), serverToken authenticates the account, and
// sender is the From address stamped on every message.
func NewClient(apiURL, serverToken, sender string, opts ...ClientOption) (*Client, error) {
	if apiURL == "" {
		return nil, oops.Code("EMAIL_CONFIG_INVALID").Errorf("email API URL is required")
	}
	if serverToken == "" {
		return nil, oops.Code("EMAIL_CONFIG_INVALID").Errorf("email server token is required")
	}
	if sender == "" {
		return nil, oops.Code("EMAIL_CONFIG_INVALID").Errorf("sender address is required")
	}

	c := &Client{
		apiURL:      apiURL,
		serverToken: serverToken,
		sender:      sender,
		httpClient:  &http.Client{Timeout: defaultSendTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// sendRequest is the Postmark /email payload.
type sendRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send performs one delivery attempt. There is no retry; callers own the
// failure policy.
func (c *Client) Send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	payload, err := json.Marshal(sendRequest{
		From:     c.sender,
		To:       recipient,
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return oops.Code("EMAIL_SEND_FAILED").
			With("operation", "marshal request").
			Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/email", bytes.NewReader(payload))
	if err != nil {
		return oops.Code("EMAIL_SEND_FAILED").
			With("operation", "build request").
			Wrap(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return oops.Code("EMAIL_SEND_FAILED").
			With("operation", "post email").
			Wrap(err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode != http.StatusOK {
		// The provider error body is short and useful; keep a bounded slice.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512)) //nolint:errcheck // best effort diagnostic
		return oops.Code("EMAIL_SEND_FAILED").
			With("operation", "post email").
			With("status", resp.StatusCode).
			With("body", string(body)).
			Errorf("email API returned status %d", resp.StatusCode)
	}
	return nil
}

// Compile-time interface check.
var _ Sender = (*Client)(nil)
