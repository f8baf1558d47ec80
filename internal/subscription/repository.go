// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package subscription

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// SubscriberRepository manages subscriber and confirmation-token persistence.
type SubscriberRepository interface {
	// CreateWithToken stores a subscriber and a confirmation token referencing
	// it as one atomic unit. If the email is already registered, the existing
	// row is kept (its name refreshed) and the token attaches to it; prior
	// tokens stay live.
	CreateWithToken(ctx context.Context, sub *Subscriber, token string) error

	// SubscriberIDByToken resolves a confirmation token to its subscriber ID.
	// Returns ErrNotFound (wrapped) for unknown tokens.
	SubscriberIDByToken(ctx context.Context, token string) (ulid.ULID, error)

	// MarkConfirmed sets the subscriber's status to confirmed. The write is
	// idempotent. Returns ErrNotFound (wrapped) if the subscriber row does
	// not exist.
	MarkConfirmed(ctx context.Context, id ulid.ULID) error

	// ConfirmedEmails returns the stored email values of all confirmed
	// subscribers. Values are returned as stored, unvalidated; callers own
	// the handling of corrupted historical data.
	ConfirmedEmails(ctx context.Context) ([]string, error)
}
