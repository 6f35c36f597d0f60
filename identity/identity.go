// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package identity

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Record ids follow the backing store's convention: 15 lowercase
// alphanumeric characters.
const (
	recordIDLength   = 15
	recordIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// NewRecordID creates a random store-compatible record id.
func NewRecordID() (string, error) {
	b := make([]byte, recordIDLength)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate record ID: %w", err)
	}
	for i, c := range b {
		b[i] = recordIDAlphabet[int(c)%len(recordIDAlphabet)]
	}
	return string(b), nil
}

// LocalPollID marks a poll id as local-only (never persisted remotely).
// seed is any unique string, typically a UUID.
func LocalPollID(seed string) string { return "local-" + seed }

// IsLocal reports whether id was minted by LocalPollID.
func IsLocal(id string) bool { return strings.HasPrefix(id, "local-") }

// ShortID renders a placeholder display name from a user id, used when a
// user lookup fails.
func ShortID(userID string) string {
	const n = 6
	if len(userID) <= n {
		return "user-" + userID
	}
	return "user-" + userID[:n]
}
