// api_key_repository.go implements APIKeyRepository, providing database queries for API key
// creation, digest lookup, org-scoped listing and revocation, and last-used timestamp updates.
package repositories

import (
	"context"
	"database/sql"

	"github.com/smplatform/smplatform/internal/db/models"
)

// APIKeyRepository handles API key database operations
type APIKeyRepository struct {
	db *sql.DB
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// CreateAPIKey inserts a new API key and fills in the store-assigned ID,
// status, and creation timestamp on the passed model.
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, apiKey *models.APIKey) error {
	query := `
		INSERT INTO api_keys (org_id, name, key_prefix, key_hash, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at
	`

	return r.db.QueryRowContext(ctx, query,
		apiKey.OrgID,
		apiKey.Name,
		apiKey.KeyPrefix,
		apiKey.KeyHash,
		apiKey.ExpiresAt,
	).Scan(&apiKey.ID, &apiKey.Status, &apiKey.CreatedAt)
}

// GetActiveAPIKeyByHash retrieves an active API key by its digest for request
// authentication. Revoked keys are filtered in the query so a revoked key is
// indistinguishable from an unknown one. Expiry is checked by the caller, not
// here, so the authenticator decides against a single clock reading.
// Returns (nil, nil) when no active key matches.
func (r *APIKeyRepository) GetActiveAPIKeyByHash(ctx context.Context, keyHash string) (*models.APIKey, error) {
	query := `
		SELECT id, org_id, name, key_prefix, key_hash, status, created_at, expires_at, last_used_at
		FROM api_keys
		WHERE key_hash = $1 AND status = 'active'
	`

	apiKey := &models.APIKey{}
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(
		&apiKey.ID,
		&apiKey.OrgID,
		&apiKey.Name,
		&apiKey.KeyPrefix,
		&apiKey.KeyHash,
		&apiKey.Status,
		&apiKey.CreatedAt,
		&apiKey.ExpiresAt,
		&apiKey.LastUsedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return apiKey, nil
}

// ListAPIKeysByOrganization retrieves all API keys for an organization,
// revoked ones included, newest first.
func (r *APIKeyRepository) ListAPIKeysByOrganization(ctx context.Context, orgID int64) ([]*models.APIKey, error) {
	query := `
		SELECT id, org_id, name, key_prefix, key_hash, status, created_at, expires_at, last_used_at
		FROM api_keys
		WHERE org_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		apiKey := &models.APIKey{}
		err := rows.Scan(
			&apiKey.ID,
			&apiKey.OrgID,
			&apiKey.Name,
			&apiKey.KeyPrefix,
			&apiKey.KeyHash,
			&apiKey.Status,
			&apiKey.CreatedAt,
			&apiKey.ExpiresAt,
			&apiKey.LastUsedAt,
		)
		if err != nil {
			return nil, err
		}
		keys = append(keys, apiKey)
	}

	return keys, rows.Err()
}

// RevokeAPIKey marks a key revoked, scoped to the owning organization so one
// tenant can never revoke another tenant's key. The transition is one-way and
// idempotent: revoking an already-revoked key succeeds and returns the row.
// Returns (nil, nil) when the key does not exist within the organization.
func (r *APIKeyRepository) RevokeAPIKey(ctx context.Context, orgID, keyID int64) (*models.APIKey, error) {
	query := `
		UPDATE api_keys
		SET status = 'revoked'
		WHERE id = $1 AND org_id = $2
		RETURNING id, org_id, name, key_prefix, key_hash, status, created_at, expires_at, last_used_at
	`

	apiKey := &models.APIKey{}
	err := r.db.QueryRowContext(ctx, query, keyID, orgID).Scan(
		&apiKey.ID,
		&apiKey.OrgID,
		&apiKey.Name,
		&apiKey.KeyPrefix,
		&apiKey.KeyHash,
		&apiKey.Status,
		&apiKey.CreatedAt,
		&apiKey.ExpiresAt,
		&apiKey.LastUsedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return apiKey, nil
}

// UpdateLastUsed stamps the key's last_used_at with the database clock.
// Called best-effort after successful authentication; failures are logged by
// the caller and never affect the request outcome.
func (r *APIKeyRepository) UpdateLastUsed(ctx context.Context, keyID int64) error {
	query := `UPDATE api_keys SET last_used_at = now() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, keyID)
	return err
}
