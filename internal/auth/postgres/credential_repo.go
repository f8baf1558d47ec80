// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package postgres implements auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/inkletter/inkletter/internal/auth"
)

// dbPool abstracts the pgx pool so pgxmock can stand in during tests.
// Satisfied by *pgxpool.Pool and pgxmock.PgxPoolIface.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CredentialRepository implements auth.CredentialRepository using PostgreSQL.
type CredentialRepository struct {
	pool dbPool
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(pool dbPool) *CredentialRepository {
	return &CredentialRepository{pool: pool}
}

// CredentialByUsername returns the user ID and password hash for a username.
func (r *CredentialRepository) CredentialByUsername(ctx context.Context, username string) (ulid.ULID, string, error) {
	var (
		idStr        string
		passwordHash string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, password_hash FROM users
		WHERE username = $1
	`, username).Scan(&idStr, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, "", oops.Code("USER_UNKNOWN").
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, "", oops.Code("USER_LOOKUP_FAILED").
			With("operation", "get credentials by username").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, "", oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	return id, passwordHash, nil
}

// CreateUser stores a new user with an already-hashed password.
func (r *CredentialRepository) CreateUser(ctx context.Context, id ulid.ULID, username, passwordHash string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (user_id, username, password_hash)
		VALUES ($1, $2, $3)
	`, id.String(), username, passwordHash)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", username).
			Wrap(err)
	}
	return nil
}

// Compile-time interface check.
var _ auth.CredentialRepository = (*CredentialRepository)(nil)
