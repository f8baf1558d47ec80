// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package auth

import (
	"context"
	"errors"
	"runtime"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// CredentialRepository loads stored credentials by username.
type CredentialRepository interface {
	// CredentialByUsername returns the user ID and PHC password hash for a
	// username. Returns an error wrapping ErrNotFound when no such user exists.
	CredentialByUsername(ctx context.Context, username string) (ulid.ULID, string, error)
}

// Validator checks username/password pairs against stored credentials.
type Validator struct {
	repo   CredentialRepository
	hasher PasswordHasher

	// verifySlots bounds concurrent argon2 verifications so a burst of
	// requests cannot exhaust CPU and starve the rest of the server.
	verifySlots *semaphore.Weighted
}

// NewValidator creates a Validator backed by the given repository and hasher.
func NewValidator(repo CredentialRepository, hasher PasswordHasher) (*Validator, error) {
	if repo == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("credential repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_CONFIG_INVALID").Errorf("password hasher is required")
	}
	return &Validator{
		repo:        repo,
		hasher:      hasher,
		verifySlots: semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Validate checks the credentials and returns the authenticated user's ID.
// Unknown usernames and wrong passwords both yield AUTH_INVALID_CREDENTIALS.
// A password verification runs in every case so response time does not reveal
// whether the username exists.
func (v *Validator) Validate(ctx context.Context, username, password string) (ulid.ULID, error) {
	userID, storedHash, lookupErr := v.repo.CredentialByUsername(ctx, username)

	// Determine which hash to verify against (real or dummy for timing attack prevention)
	targetHash := storedHash
	userExists := true

	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return ulid.ULID{}, oops.Code("AUTH_VALIDATE_FAILED").
				With("operation", "get credentials by username").
				Wrap(lookupErr)
		}
		targetHash = dummyPasswordHash
		userExists = false
	}

	if err := v.verifySlots.Acquire(ctx, 1); err != nil {
		return ulid.ULID{}, oops.Code("AUTH_VALIDATE_FAILED").
			With("operation", "acquire verify slot").
			Wrap(err)
	}
	valid, verifyErr := v.hasher.Verify(password, targetHash)
	v.verifySlots.Release(1)

	if verifyErr != nil {
		// For dummy hash verification errors, just treat as invalid
		if !userExists {
			return ulid.ULID{}, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
		}
		return ulid.ULID{}, oops.Code("AUTH_VALIDATE_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	// Unknown user and wrong password produce the same error
	if !userExists || !valid {
		return ulid.ULID{}, oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid username or password")
	}

	return userID, nil
}
