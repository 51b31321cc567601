// Package models - organization.go defines the Organization model representing a tenant
// with its rate limit and usage quota settings.
package models

import "time"

// Organization represents a tenant. RateLimitRPM is the per-key request
// budget for one rate-limit window; MonthlyQuota is informational for now
// (billing enforcement happens outside this service).
type Organization struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	RateLimitRPM int       `json:"rate_limit_rpm"`
	MonthlyQuota int64     `json:"monthly_quota"`
	CreatedAt    time.Time `json:"created_at"`
}
