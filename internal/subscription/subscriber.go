// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

// Package subscription provides the newsletter subscription domain:
// subscriber registration, confirmation tokens, and the pending-to-confirmed
// state machine.
package subscription

import (
	"net/mail"
	"strings"
	"time"
	"unicode"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Subscriber status values. A subscriber is created pending and moves to
// confirmed exactly once; there is no transition back.
const (
	StatusPending   = "pending_confirmation"
	StatusConfirmed = "confirmed"
)

// MaxNameLength bounds the subscriber name, in runes.
const MaxNameLength = 256

// forbiddenNameChars are rejected to keep names safe for embedding in email
// bodies and HTML templates.
const forbiddenNameChars = `/()"<>\{}`

// Subscriber is a newsletter subscriber.
type Subscriber struct {
	ID           ulid.ULID
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       string
}

// NewSubscriber creates a validated pending subscriber from untrusted form
// input. Validation failures carry the VALIDATION_FAILED code and cause no
// side effects.
func NewSubscriber(name, email string) (*Subscriber, error) {
	parsedName, err := ParseName(name)
	if err != nil {
		return nil, err
	}
	parsedEmail, err := ParseEmail(email)
	if err != nil {
		return nil, err
	}

	return &Subscriber{
		ID:           ulid.Make(),
		Email:        parsedEmail,
		Name:         parsedName,
		SubscribedAt: time.Now().UTC(),
		Status:       StatusPending,
	}, nil
}

// IsConfirmed returns true once the subscriber has confirmed their address.
func (s *Subscriber) IsConfirmed() bool {
	return s.Status == StatusConfirmed
}

// ParseName validates a subscriber name: non-empty after trimming, at most
// MaxNameLength runes, no control characters, none of forbiddenNameChars.
func ParseName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", oops.Code("VALIDATION_FAILED").
			With("field", "name").
			Errorf("name cannot be empty")
	}
	if len([]rune(name)) > MaxNameLength {
		return "", oops.Code("VALIDATION_FAILED").
			With("field", "name").
			With("max_length", MaxNameLength).
			Errorf("name exceeds %d characters", MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return "", oops.Code("VALIDATION_FAILED").
				With("field", "name").
				Errorf("name contains control characters")
		}
		if strings.ContainsRune(forbiddenNameChars, r) {
			return "", oops.Code("VALIDATION_FAILED").
				With("field", "name").
				Errorf("name contains forbidden character %q", r)
		}
	}
	return name, nil
}

// ParseEmail validates a bare email address. Display-name forms like
// "Ursula <u@example.com>" are rejected; only the plain address is accepted.
func ParseEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", oops.Code("VALIDATION_FAILED").
			With("field", "email").
			Errorf("email cannot be empty")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil {
		return "", oops.Code("VALIDATION_FAILED").
			With("field", "email").
			Wrapf(err, "email is not a valid address")
	}
	if addr.Address != email {
		return "", oops.Code("VALIDATION_FAILED").
			With("field", "email").
			Errorf("email must be a bare address")
	}
	return email, nil
}
