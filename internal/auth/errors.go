// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package auth

import "errors"

// ErrNotFound is returned when a user does not exist.
var ErrNotFound = errors.New("not found")
