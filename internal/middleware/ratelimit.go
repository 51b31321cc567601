// ratelimit.go provides Gin middleware that enforces per-key fixed-window rate
// limits on the metered surface, returning 429 responses once a key exhausts
// its organization's per-window allowance.
package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smplatform/smplatform/internal/config"
	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/ratelimit"
	"github.com/smplatform/smplatform/internal/telemetry"
)

// RateLimitMiddleware limits requests per API key. It must run after
// APIKeyAuthMiddleware, which stores the authenticated key in the context.
//
// The per-window allowance comes from the owning organization's
// rate_limit_rpm column; the configured default applies when the
// organization cannot be loaded or carries no positive limit.
//
// Counter store failures follow cfg.RateLimit.FailurePolicy: "open" lets the
// request through (availability over strict enforcement), "closed" rejects
// it with 503.
//
// Every response on the metered surface carries X-RateLimit-Limit,
// X-RateLimit-Remaining, and X-RateLimit-Reset headers; rejected requests
// additionally carry Retry-After. When the counter store is down and the
// request passes through fail-open, only X-RateLimit-Limit is sent: the
// remaining budget and reset time are unknowable without the counter.
func RateLimitMiddleware(limiter *ratelimit.FixedWindowLimiter, orgs *repositories.OrganizationRepository, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, ok := c.Get(ContextAPIKeyKey)
		if !ok {
			// Router misconfiguration: the auth middleware did not run.
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal server error",
			})
			return
		}
		key := v.(*models.APIKey)

		limit := cfg.RateLimit.DefaultPerWindow
		org, err := orgs.GetOrganizationByID(c.Request.Context(), key.OrgID)
		if err != nil {
			// Enforce the default limit rather than blocking traffic on a
			// transient lookup failure.
			slog.Warn("rate limit: organization lookup failed, using default limit",
				"org_id", key.OrgID,
				"error", err,
			)
		} else if org != nil && org.RateLimitRPM > 0 {
			limit = org.RateLimitRPM
		}

		res, err := limiter.Allow(c.Request.Context(), key.ID, limit)
		if err != nil {
			telemetry.RateLimitDecisionsTotal.WithLabelValues("error").Inc()
			if cfg.RateLimit.FailurePolicy == config.FailurePolicyClosed {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
					"error": "rate limiting temporarily unavailable",
				})
				return
			}
			slog.Warn("rate limit: counter store unavailable, allowing request",
				"api_key_id", key.ID,
				"error", err,
			)
			c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			telemetry.RateLimitDecisionsTotal.WithLabelValues("limited").Inc()
			retryAfter := int(time.Until(res.ResetAt).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":    "rate limit exceeded",
				"reset_at": res.ResetAt.UTC().Format(time.RFC3339),
			})
			return
		}

		telemetry.RateLimitDecisionsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
