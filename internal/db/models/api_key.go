// Package models - api_key.go defines the APIKey model. The plaintext key is
// never stored; only its SHA-256 digest and a short display prefix survive
// creation.
package models

import "time"

// KeyStatus is the lifecycle state of an API key. The transition is one-way:
// active → revoked. There is no path back.
type KeyStatus string

const (
	KeyStatusActive  KeyStatus = "active"
	KeyStatusRevoked KeyStatus = "revoked"
)

// APIKey represents an API key issued to an organization
type APIKey struct {
	ID         int64      `json:"id"`
	OrgID      int64      `json:"org_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	KeyHash    string     `json:"-"`
	Status     KeyStatus  `json:"-"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

// Expired reports whether the key's expiry, if set, has passed at now
func (k *APIKey) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// UsableAt reports whether the key authenticates requests at now:
// it must be active and not expired
func (k *APIKey) UsableAt(now time.Time) bool {
	return k.Status == KeyStatusActive && !k.Expired(now)
}
