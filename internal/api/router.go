// Package api wires together all HTTP routes for the metering platform.
//
// Route grouping philosophy:
//   - Dashboard routes (/auth/, /orgs/) authenticate humans with session JWTs
//     and manage accounts, organizations, and API keys.
//   - Metered routes (/v1/) authenticate machines with X-API-Key and are the
//     only surface the fixed-window rate limiter applies to. Dashboard traffic
//     is never counted against an organization's allowance.
//   - Probes (/health, /ready, /version) are public.
package api

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/smplatform/smplatform/internal/api/dashboard"
	"github.com/smplatform/smplatform/internal/api/ingest"
	"github.com/smplatform/smplatform/internal/config"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/middleware"
	"github.com/smplatform/smplatform/internal/ratelimit"
	"github.com/smplatform/smplatform/internal/ratelimit/store"
	"github.com/smplatform/smplatform/internal/services"
)

// BackgroundServices holds resources that must be released during graceful
// shutdown. The caller (cmd/server) calls Shutdown() after the HTTP server
// has drained in-flight requests.
type BackgroundServices struct {
	counters store.CounterStore
}

// Shutdown releases held resources.
func (bg *BackgroundServices) Shutdown() {
	if bg.counters != nil {
		if err := bg.counters.Close(); err != nil {
			slog.Warn("failed to close counter store", "error", err)
		}
	}
	slog.Info("background services stopped")
}

// NewRouter creates and configures the Gin router. counters may be nil when
// rate limiting is disabled; the /v1 surface then runs with authentication
// only.
func NewRouter(cfg *config.Config, db *sql.DB, counters store.CounterStore) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	apiKeyRepo := repositories.NewAPIKeyRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)

	// Wrap *sql.DB with sqlx for the batch-inserting event repository
	sqlxDB := sqlx.NewDb(db, "postgres")
	eventRepo := repositories.NewEventRepository(sqlxDB)

	// Services
	keySvc := services.NewAPIKeyService(apiKeyRepo, cfg.Auth.APIKeys.Prefix)
	orgSvc := services.NewOrgService(orgRepo, userRepo)

	// Handlers
	authHandlers := dashboard.NewAuthHandlers(cfg, userRepo)
	orgHandlers := dashboard.NewOrgHandlers(orgSvc, eventRepo)
	apiKeyHandlers := dashboard.NewAPIKeyHandlers(keySvc, orgSvc)
	ingestHandlers := ingest.NewHandlers(eventRepo)

	// Middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware(cfg))
	router.Use(CORSMiddleware(cfg))

	// Probes
	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, counters))
	router.GET("/version", versionHandler())

	// Dashboard authentication
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/signup", authHandlers.SignupHandler())
		authGroup.POST("/login", authHandlers.LoginHandler())
		authGroup.GET("/me", middleware.JWTAuthMiddleware(userRepo), authHandlers.MeHandler())
	}

	// Dashboard management (session JWT required)
	orgsGroup := router.Group("/orgs")
	orgsGroup.Use(middleware.JWTAuthMiddleware(userRepo))
	{
		orgsGroup.POST("", orgHandlers.CreateOrganizationHandler())
		orgsGroup.GET("", orgHandlers.ListOrganizationsHandler())
		orgsGroup.GET("/:org_id", orgHandlers.GetOrganizationHandler())
		orgsGroup.GET("/:org_id/usage", orgHandlers.UsageHandler())

		orgsGroup.POST("/:org_id/members", orgHandlers.AddMemberHandler())
		orgsGroup.GET("/:org_id/members", orgHandlers.ListMembersHandler())
		orgsGroup.DELETE("/:org_id/members/:user_id", orgHandlers.RemoveMemberHandler())

		orgsGroup.POST("/:org_id/api-keys", apiKeyHandlers.CreateAPIKeyHandler())
		orgsGroup.GET("/:org_id/api-keys", apiKeyHandlers.ListAPIKeysHandler())
		orgsGroup.DELETE("/:org_id/api-keys/:key_id", apiKeyHandlers.RevokeAPIKeyHandler())
	}

	// Metered surface (API key required)
	v1 := router.Group("/v1")
	v1.Use(middleware.APIKeyAuthMiddleware(keySvc))
	if cfg.RateLimit.Enabled && counters != nil {
		limiter := ratelimit.NewFixedWindowLimiter(counters, cfg.RateLimit.Window, cfg.RateLimit.CounterKeyPrefix)
		v1.Use(middleware.RateLimitMiddleware(limiter, orgRepo, cfg))
	}
	{
		v1.POST("/events", ingestHandlers.IngestHandler())
		v1.GET("/apikey-check", ingestHandlers.CheckHandler())
	}

	return router, &BackgroundServices{counters: counters}
}

// healthCheckHandler reports process liveness and database connectivity.
func healthCheckHandler(db *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// readinessHandler reports whether the service can take traffic. Unlike the
// liveness probe (/health), this also pings the rate limit counter store so a
// readiness gate fails while Redis is unreachable instead of serving requests
// that would hit the failure policy.
func readinessHandler(db *sql.DB, counters store.CounterStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		checks := gin.H{}

		if err := db.PingContext(c.Request.Context()); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if counters != nil {
			if err := counters.Ping(c.Request.Context()); err != nil {
				checks["counter_store"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "counter store not ready",
				})
				return
			}
			checks["counter_store"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version.
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     "0.1.0",
			"api_version": "v1",
		})
	}
}

// LoggerMiddleware emits one structured slog record per request.
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS for the dashboard frontend.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-API-Key")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
