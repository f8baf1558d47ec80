// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package main

import (
	"errors"
	"os"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/inkletter/inkletter/internal/auth"
	authpg "github.com/inkletter/inkletter/internal/auth/postgres"
	"github.com/inkletter/inkletter/internal/store"
)

// NewUserAddCmd creates the useradd subcommand.
func NewUserAddCmd() *cobra.Command {
	var (
		databaseURL string
		password    string
	)

	cmd := &cobra.Command{
		Use:   "useradd <username>",
		Short: "Create a publisher account",
		Long: `Create a publisher account allowed to POST /newsletters.
The password is hashed with argon2id before it is stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := args[0]
			if username == "" {
				return oops.Code("INVALID_ARGUMENT").Errorf("username cannot be empty")
			}
			if password == "" {
				return oops.Code("INVALID_ARGUMENT").Errorf("--password is required")
			}

			url := databaseURL
			if url == "" {
				url = os.Getenv("DATABASE_URL")
			}
			if url == "" {
				return oops.Code("CONFIG_INVALID").Errorf("set --database-url or the DATABASE_URL environment variable")
			}

			hash, err := auth.NewArgon2idHasher().Hash(password)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			pool, err := store.Connect(ctx, url)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo := authpg.NewCredentialRepository(pool)
			err = repo.CreateUser(ctx, ulid.Make(), username, hash)
			if err != nil {
				var pgErr *pgconn.PgError
				if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
					return oops.Code("USER_EXISTS").
						With("username", username).
						Errorf("user %q already exists", username)
				}
				return err
			}

			cmd.Printf("Created user %s\n", username)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "",
		"PostgreSQL connection string (default: DATABASE_URL environment variable)")
	cmd.Flags().StringVar(&password, "password", "", "password for the new user")

	return cmd
}
