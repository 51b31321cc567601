// apikeys.go implements the API key lifecycle (create, list, revoke) and
// request-time authentication against the stored digests.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/smplatform/smplatform/internal/auth"
	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/safego"
)

const (
	maxKeyNameLength = 120

	// lookupTimeout bounds the digest lookup so a stalled database turns
	// into a clean 503 instead of a hung request.
	lookupTimeout = 2 * time.Second

	// lastUsedTimeout bounds the background last_used_at update.
	lastUsedTimeout = 5 * time.Second
)

// APIKeyService owns key issuance and request authentication
type APIKeyService struct {
	keys   *repositories.APIKeyRepository
	prefix string
}

// NewAPIKeyService creates an APIKeyService issuing keys with the given
// plaintext prefix (e.g. "smp_live_").
func NewAPIKeyService(keys *repositories.APIKeyRepository, prefix string) *APIKeyService {
	return &APIKeyService{keys: keys, prefix: prefix}
}

// CreateKey mints a key for the organization and returns the plaintext
// alongside the stored record. This is the only moment the plaintext exists
// outside the caller's hands; it is never logged and never persisted.
func (s *APIKeyService) CreateKey(ctx context.Context, orgID int64, name string, expiresAt *time.Time) (string, *models.APIKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil, fmt.Errorf("%w: key name is required", ErrValidation)
	}
	if len(name) > maxKeyNameLength {
		return "", nil, fmt.Errorf("%w: key name exceeds %d characters", ErrValidation, maxKeyNameLength)
	}
	if expiresAt != nil && !expiresAt.After(time.Now()) {
		return "", nil, fmt.Errorf("%w: expires_at must be in the future", ErrValidation)
	}

	plaintext, hash, displayPrefix, err := auth.GenerateAPIKey(s.prefix)
	if err != nil {
		return "", nil, fmt.Errorf("generating key material: %w", err)
	}

	apiKey := &models.APIKey{
		OrgID:     orgID,
		Name:      name,
		KeyPrefix: displayPrefix,
		KeyHash:   hash,
		ExpiresAt: expiresAt,
	}
	if err := s.keys.CreateAPIKey(ctx, apiKey); err != nil {
		return "", nil, fmt.Errorf("storing api key: %w", err)
	}

	return plaintext, apiKey, nil
}

// ListKeys returns all keys of the organization, revoked ones included,
// newest first. Only metadata: digests stay inside the model's private
// fields and plaintext does not exist anymore.
func (s *APIKeyService) ListKeys(ctx context.Context, orgID int64) ([]*models.APIKey, error) {
	return s.keys.ListAPIKeysByOrganization(ctx, orgID)
}

// RevokeKey revokes a key within the organization's scope. Unknown keys and
// keys belonging to other organizations both return ErrNotFound. Revoking an
// already revoked key is a no-op success.
func (s *APIKeyService) RevokeKey(ctx context.Context, orgID, keyID int64) (*models.APIKey, error) {
	apiKey, err := s.keys.RevokeAPIKey(ctx, orgID, keyID)
	if err != nil {
		return nil, fmt.Errorf("revoking api key: %w", err)
	}
	if apiKey == nil {
		return nil, ErrNotFound
	}
	return apiKey, nil
}

// Authenticate resolves a presented plaintext key to its stored record.
//
// The presented value is hashed and looked up with a single indexed query
// that only matches active rows; expiry is then checked against the current
// clock. Unknown, revoked, and expired keys all come back as
// ErrInvalidCredential. A store failure is returned as-is so the caller
// fails closed.
//
// On success the key's last_used_at is updated in the background with its
// own timeout; a failure there is logged and never affects the outcome.
func (s *APIKeyService) Authenticate(ctx context.Context, presented string) (*models.APIKey, error) {
	if presented == "" {
		return nil, ErrMissingCredential
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	apiKey, err := s.keys.GetActiveAPIKeyByHash(lookupCtx, auth.HashAPIKey(presented))
	if err != nil {
		return nil, fmt.Errorf("api key lookup: %w", err)
	}
	if apiKey == nil || !apiKey.UsableAt(time.Now()) {
		return nil, ErrInvalidCredential
	}

	keyID := apiKey.ID
	safego.Go(func() {
		updateCtx, cancel := context.WithTimeout(context.Background(), lastUsedTimeout)
		defer cancel()
		if err := s.keys.UpdateLastUsed(updateCtx, keyID); err != nil {
			slog.Warn("failed to update api key last_used_at", "key_id", keyID, "error", err)
		}
	})

	return apiKey, nil
}
