// Package models - event.go defines the usage event accepted through the
// ingest surface.
package models

import (
	"encoding/json"
	"time"
)

// Event is a single usage event recorded for an organization. Payload holds
// arbitrary caller-supplied JSON and is stored as JSONB.
type Event struct {
	ID        int64           `db:"id" json:"id"`
	OrgID     int64           `db:"org_id" json:"org_id"`
	APIKeyID  int64           `db:"api_key_id" json:"api_key_id"`
	Name      string          `db:"name" json:"name"`
	Payload   json.RawMessage `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}
