// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package postgres implements subscription repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/inkletter/inkletter/internal/subscription"
)

// dbPool abstracts the pgx pool so pgxmock can stand in during tests.
// Satisfied by *pgxpool.Pool and pgxmock.PgxPoolIface.
type dbPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SubscriberRepository implements subscription.SubscriberRepository using
// PostgreSQL.
type SubscriberRepository struct {
	pool dbPool
}

// NewSubscriberRepository creates a new SubscriberRepository.
func NewSubscriberRepository(pool dbPool) *SubscriberRepository {
	return &SubscriberRepository{pool: pool}
}

// CreateWithToken stores the subscriber and its confirmation token in one
// transaction. A rollback is always attempted on the way out; after a commit
// it is a no-op, on any earlier failure (including context cancellation) it
// releases the connection with the transaction undone.
func (r *SubscriberRepository) CreateWithToken(ctx context.Context, sub *subscription.Subscriber, token string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.Code("SUBSCRIBER_CREATE_FAILED").
			With("operation", "begin transaction").
			Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op

	// Re-subscription keeps the existing row (refreshing the name) and hangs
	// the new token off it; earlier tokens stay live.
	var idStr string
	err = tx.QueryRow(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`,
		sub.ID.String(),
		sub.Email,
		sub.Name,
		sub.SubscribedAt,
		sub.Status,
	).Scan(&idStr)
	if err != nil {
		return oops.Code("SUBSCRIBER_CREATE_FAILED").
			With("operation", "insert subscriber").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return oops.Code("SUBSCRIBER_INVALID_ID").
			With("operation", "parse subscriber id").
			With("id", idStr).
			Wrap(err)
	}
	sub.ID = id

	_, err = tx.Exec(ctx, `
		INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		VALUES ($1, $2)
	`, token, idStr)
	if err != nil {
		return oops.Code("SUBSCRIBER_CREATE_FAILED").
			With("operation", "insert confirmation token").
			With("subscriber_id", idStr).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("SUBSCRIBER_CREATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// SubscriberIDByToken resolves a confirmation token to its subscriber ID.
func (r *SubscriberRepository) SubscriberIDByToken(ctx context.Context, token string) (ulid.ULID, error) {
	var idStr string
	err := r.pool.QueryRow(ctx, `
		SELECT subscriber_id FROM subscription_tokens
		WHERE subscription_token = $1
	`, token).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("TOKEN_UNKNOWN").
			Wrap(subscription.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("TOKEN_LOOKUP_FAILED").
			With("operation", "get subscriber id by token").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("SUBSCRIBER_INVALID_ID").
			With("operation", "parse subscriber id").
			With("id", idStr).
			Wrap(err)
	}
	return id, nil
}

// MarkConfirmed sets the subscriber's status to confirmed. The write is the
// same whether or not the subscriber was already confirmed.
func (r *SubscriberRepository) MarkConfirmed(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE subscriptions SET status = $2 WHERE id = $1
	`, id.String(), subscription.StatusConfirmed)
	if err != nil {
		return oops.Code("SUBSCRIBER_CONFIRM_FAILED").
			With("operation", "update subscriber status").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("SUBSCRIBER_NOT_FOUND").
			With("id", id.String()).
			Wrap(subscription.ErrNotFound)
	}
	return nil
}

// ConfirmedEmails returns the stored emails of all confirmed subscribers.
// Values come back exactly as stored; corrupted historical data is the
// caller's concern.
func (r *SubscriberRepository) ConfirmedEmails(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT email FROM subscriptions WHERE status = $1
	`, subscription.StatusConfirmed)
	if err != nil {
		return nil, oops.Code("SUBSCRIBER_QUERY_FAILED").
			With("operation", "query confirmed subscribers").
			Wrap(err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, oops.Code("SUBSCRIBER_QUERY_FAILED").
				With("operation", "scan subscriber email").
				Wrap(err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("SUBSCRIBER_QUERY_FAILED").
			With("operation", "iterate confirmed subscribers").
			Wrap(err)
	}
	return emails, nil
}

// Compile-time interface check.
var _ subscription.SubscriberRepository = (*SubscriberRepository)(nil)
