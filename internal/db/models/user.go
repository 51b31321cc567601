// Package models defines the database model types for the metering platform.
// Each type corresponds to a database table. Models are pure data types —
// business logic belongs in the service layer, query logic belongs in the
// repositories layer.
package models

import "time"

// User represents a dashboard user account
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
