package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smplatform/smplatform/internal/auth"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/services"
	"github.com/smplatform/smplatform/internal/telemetry"
)

const (
	// APIKeyHeader is the HTTP header metered clients use to present their key.
	APIKeyHeader = "X-API-Key"

	// ContextUserKey and ContextUserIDKey carry the authenticated dashboard user.
	ContextUserKey   = "user"
	ContextUserIDKey = "user_id"

	// ContextAPIKeyKey and ContextOrgIDKey carry the authenticated API key and
	// its owning organization on the metered surface.
	ContextAPIKeyKey = "api_key"
	ContextOrgIDKey  = "org_id"
)

// JWTAuthMiddleware authenticates dashboard requests from an Authorization
// Bearer token. On success the *models.User is stored under ContextUserKey
// and its ID under ContextUserIDKey.
func JWTAuthMiddleware(users *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "missing authorization header",
			})
			return
		}

		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authorization header must start with 'Bearer '",
			})
			return
		}

		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "authorization token is empty",
			})
			return
		}

		claims, err := auth.ValidateJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "failed to load user",
			})
			return
		}
		if user == nil {
			// Token is cryptographically valid but the account no longer exists.
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)

		c.Next()
	}
}

// APIKeyAuthMiddleware authenticates metered requests from the X-API-Key
// header. On success the *models.APIKey is stored under ContextAPIKeyKey and
// its organization ID under ContextOrgIDKey.
//
// Credential failures (missing, unknown, revoked, or expired keys) all map to
// 401 with a generic message so callers cannot probe which keys exist. A
// lookup store failure maps to 503: when the platform cannot verify a
// credential it refuses the request rather than letting unverified traffic
// through.
func APIKeyAuthMiddleware(keys *services.APIKeyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, err := keys.Authenticate(c.Request.Context(), c.GetHeader(APIKeyHeader))
		if err != nil {
			switch {
			case errors.Is(err, services.ErrMissingCredential):
				telemetry.APIKeyAuthFailuresTotal.WithLabelValues("missing").Inc()
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "missing API key",
				})
			case errors.Is(err, services.ErrInvalidCredential):
				telemetry.APIKeyAuthFailuresTotal.WithLabelValues("invalid").Inc()
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": "invalid API key",
				})
			default:
				telemetry.APIKeyAuthFailuresTotal.WithLabelValues("store_unavailable").Inc()
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "authentication temporarily unavailable",
				})
			}
			return
		}

		c.Set(ContextAPIKeyKey, key)
		c.Set(ContextOrgIDKey, key.OrgID)

		c.Next()
	}
}
