// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package newsletter publishes issues to confirmed subscribers.
package newsletter

import "github.com/samber/oops"

// Issue is a single newsletter edition to broadcast.
type Issue struct {
	Title string
	HTML  string
	Text  string
}

// Validate checks that the issue has a title and at least one body.
func (i Issue) Validate() error {
	if i.Title == "" {
		return oops.Code("VALIDATION_FAILED").Errorf("issue title is required")
	}
	if i.HTML == "" && i.Text == "" {
		return oops.Code("VALIDATION_FAILED").Errorf("issue needs an HTML or text body")
	}
	return nil
}
