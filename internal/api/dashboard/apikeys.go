package dashboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/services"
)

// APIKeyHandlers handles API key lifecycle endpoints. Keys belong to
// organizations, not users, so every route is scoped under /orgs/:org_id and
// gated on the caller's membership role.
type APIKeyHandlers struct {
	keys *services.APIKeyService
	orgs *services.OrgService
}

// NewAPIKeyHandlers creates a new APIKeyHandlers instance.
func NewAPIKeyHandlers(keys *services.APIKeyService, orgs *services.OrgService) *APIKeyHandlers {
	return &APIKeyHandlers{keys: keys, orgs: orgs}
}

// CreateAPIKeyRequest is the body for POST /orgs/:org_id/api-keys.
type CreateAPIKeyRequest struct {
	Name      string  `json:"name" binding:"required"`
	ExpiresAt *string `json:"expires_at"` // RFC3339; omit for a non-expiring key
}

// APIKeyView is the representation returned by list and revoke responses.
// The key hash never leaves the database; IsActive folds status and expiry
// into the single boolean dashboards display.
type APIKeyView struct {
	ID         int64      `json:"id"`
	OrgID      int64      `json:"org_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func newAPIKeyView(k *models.APIKey, now time.Time) APIKeyView {
	return APIKeyView{
		ID:         k.ID,
		OrgID:      k.OrgID,
		Name:       k.Name,
		KeyPrefix:  k.KeyPrefix,
		IsActive:   k.UsableAt(now),
		CreatedAt:  k.CreatedAt,
		ExpiresAt:  k.ExpiresAt,
		LastUsedAt: k.LastUsedAt,
	}
}

// requireKeyManager resolves the caller's membership and checks that the role
// may manage keys. Responds itself on failure and returns false.
func (h *APIKeyHandlers) requireKeyManager(c *gin.Context, orgID int64) bool {
	_, member, err := h.orgs.RequireMember(c.Request.Context(), orgID, currentUserID(c), models.RoleMember)
	if err != nil {
		writeServiceError(c, err)
		return false
	}
	if !member.Role.CanManageKeys() {
		writeServiceError(c, services.ErrForbidden)
		return false
	}
	return true
}

// CreateAPIKeyHandler mints a new API key for an organization. The plaintext
// key appears in this response under "api_key" and is never retrievable
// again; only its SHA-256 digest is stored. Requires a key-managing role
// (admin or owner).
// POST /orgs/:org_id/api-keys
func (h *APIKeyHandlers) CreateAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}

		var req CreateAPIKeyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		var expiresAt *time.Time
		if req.ExpiresAt != nil {
			t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expires_at must be RFC3339"})
				return
			}
			expiresAt = &t
		}

		if !h.requireKeyManager(c, orgID) {
			return
		}

		plaintext, key, err := h.keys.CreateKey(c.Request.Context(), orgID, req.Name, expiresAt)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"api_key": plaintext,
			"key":     newAPIKeyView(key, time.Now()),
		})
	}
}

// ListAPIKeysHandler lists an organization's keys, newest first. Revoked and
// expired keys stay in the listing with is_active false so key history is
// auditable. Any member may list.
// GET /orgs/:org_id/api-keys
func (h *APIKeyHandlers) ListAPIKeysHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}

		if _, _, err := h.orgs.RequireMember(c.Request.Context(), orgID, currentUserID(c), models.RoleMember); err != nil {
			writeServiceError(c, err)
			return
		}

		keys, err := h.keys.ListKeys(c.Request.Context(), orgID)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		now := time.Now()
		views := make([]APIKeyView, 0, len(keys))
		for _, k := range keys {
			views = append(views, newAPIKeyView(k, now))
		}

		c.JSON(http.StatusOK, gin.H{"keys": views})
	}
}

// RevokeAPIKeyHandler revokes a key. Revocation is permanent and idempotent:
// revoking an already-revoked key succeeds and returns the same final state.
// A key belonging to a different organization responds 404 rather than 403 so
// the route does not leak which key IDs exist. Requires a key-managing role.
// DELETE /orgs/:org_id/api-keys/:key_id
func (h *APIKeyHandlers) RevokeAPIKeyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}
		keyID, ok := pathID(c, "key_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid key id"})
			return
		}

		if !h.requireKeyManager(c, orgID) {
			return
		}

		key, err := h.keys.RevokeKey(c.Request.Context(), orgID, keyID)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"key": newAPIKeyView(key, time.Now())})
	}
}
