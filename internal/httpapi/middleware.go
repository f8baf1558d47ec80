// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/inkletter/inkletter/internal/observability"
)

// CredentialValidator authenticates a username/password pair.
type CredentialValidator interface {
	Validate(ctx context.Context, username, password string) (ulid.ULID, error)
}

type contextKey string

// userIDKey carries the authenticated publisher's ID.
const userIDKey contextKey = "user_id"

// UserID returns the authenticated user's ID from the request context.
func UserID(ctx context.Context) (ulid.ULID, bool) {
	id, ok := ctx.Value(userIDKey).(ulid.ULID)
	return id, ok
}

// basicAuth enforces HTTP Basic authentication against the validator. A
// missing or failed authentication answers 401 with a challenge; the reason
// is logged, never sent to the client.
func basicAuth(validator CredentialValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				challenge(w)
				return
			}

			userID, err := validator.Validate(r.Context(), username, password)
			if err != nil {
				writeAuthFailure(w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func challenge(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="publish"`)
	w.WriteHeader(http.StatusUnauthorized)
}

func writeAuthFailure(w http.ResponseWriter, logger *slog.Logger, err error) {
	if statusForError(err) == http.StatusUnauthorized {
		logger.Warn("rejected publish credentials")
		challenge(w)
		return
	}
	writeError(w, logger, "credential validation failed", err)
}

// requestLogger logs each request with its route, status, and duration, and
// feeds the HTTP request counter when metrics are wired.
func requestLogger(logger *slog.Logger, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = r.URL.Path
			}
			logger.InfoContext(r.Context(), "http request",
				"method", r.Method,
				"route", route,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
			if metrics != nil {
				metrics.HTTPRequestsTotal.
					WithLabelValues(route, strconv.Itoa(ww.Status())).
					Inc()
			}
		})
	}
}
