// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkletter Contributors

package subscription

import (
	"crypto/rand"
)

// Confirmation token configuration. 25 characters over a 62-symbol alphabet
// gives ~149 bits of entropy; the store's primary key is the only duplicate
// detection, and a collision at 1 in 62^25 is accepted as negligible.
const (
	TokenLength   = 25
	tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// GenerateToken produces an unguessable confirmation token: TokenLength
// characters drawn uniformly from tokenAlphabet. crypto/rand never fails, so
// no error is exposed to callers.
func GenerateToken() string {
	// Rejection-sample so every alphabet symbol is equally likely.
	// 248 is the largest multiple of len(tokenAlphabet) below 256.
	const limit = 248

	out := make([]byte, 0, TokenLength)
	buf := make([]byte, 32)
	for len(out) < TokenLength {
		_, _ = rand.Read(buf) //nolint:errcheck // never fails per crypto/rand docs
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, tokenAlphabet[int(b)%len(tokenAlphabet)])
			if len(out) == TokenLength {
				break
			}
		}
	}
	return string(out)
}

// ValidTokenFormat reports whether s looks like a token this service issued.
// Callers that reject on format must report the same failure as an unknown
// token, so a probe cannot learn which tokens are plausible.
func ValidTokenFormat(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
