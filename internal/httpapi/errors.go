// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/inkletter/inkletter/pkg/errutil"
)

// statusForError maps service error codes to HTTP status codes. Anything
// unmapped is an internal failure the client can do nothing about.
func statusForError(err error) int {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch oopsErr.Code() {
	case "VALIDATION_FAILED":
		return http.StatusBadRequest
	case "AUTH_INVALID_CREDENTIALS", "TOKEN_NOT_FOUND":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// writeError sends the mapped status with an empty body. Error detail goes to
// the log, not the wire.
func writeError(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		errutil.LogError(logger, msg, err)
	} else {
		errutil.LogWarn(logger, msg, err)
	}
	w.WriteHeader(status)
}
