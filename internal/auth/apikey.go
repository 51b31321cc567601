// Package auth provides authentication primitives for the platform, including API key
// generation/hashing and JWT creation/verification for dashboard sessions.
// API keys are long-lived bearer credentials for programmatic ingest clients; JWTs are
// short-lived session tokens for dashboard users. See internal/middleware/auth.go for
// the request-time authentication logic that uses these primitives.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// APIKeyRandomBytes is the length of the random part of the API key in bytes.
	// 32 bytes encode to 64 lowercase hex characters.
	APIKeyRandomBytes = 32

	// DisplayPrefixLength is the number of leading plaintext characters stored
	// for display in key lists. With the default "smp_live_" prefix this leaves
	// 3 hex characters visible, never enough to reconstruct the key.
	DisplayPrefixLength = 12
)

// GenerateAPIKey creates a new random API key with the given prefix.
// Returns: full plaintext key (to show exactly once), SHA-256 hex digest
// (to store), and the display prefix.
//
// The digest is an unsalted SHA-256 on purpose: the input is 32 bytes of
// CSPRNG output, so offline guessing is infeasible, and a deterministic digest
// lets request authentication resolve a presented key with a single lookup
// against a unique index on the digest column. bcrypt is for passwords, which
// are low-entropy; using it here would force a full-table scan per request.
func GenerateAPIKey(prefix string) (key string, hash string, displayPrefix string, err error) {
	randomBytes := make([]byte, APIKeyRandomBytes)
	if _, err = rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	fullKey := prefix + hex.EncodeToString(randomBytes)

	displayPrefixStr := fullKey
	if len(fullKey) > DisplayPrefixLength {
		displayPrefixStr = fullKey[:DisplayPrefixLength]
	}

	return fullKey, HashAPIKey(fullKey), displayPrefixStr, nil
}

// HashAPIKey returns the lowercase hex SHA-256 digest of a plaintext key.
// Used both at creation time and on every authenticated request, so it must
// stay deterministic across releases.
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}
