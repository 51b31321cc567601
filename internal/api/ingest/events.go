// Package ingest implements the metered /v1 surface that authenticated API
// keys call to record usage events. Every route here sits behind
// APIKeyAuthMiddleware and, when enabled, RateLimitMiddleware; handlers read
// the key identity from the request context rather than re-authenticating.
package ingest

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/middleware"
	"github.com/smplatform/smplatform/internal/telemetry"
)

const (
	maxBatchSize       = 500
	maxEventNameLength = 200
)

// Handlers handles event ingestion and key introspection.
type Handlers struct {
	events *repositories.EventRepository
}

// NewHandlers creates a new ingest Handlers instance.
func NewHandlers(events *repositories.EventRepository) *Handlers {
	return &Handlers{events: events}
}

// eventInput is one event in an ingest batch.
type eventInput struct {
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}

// ingestRequest is the body for POST /v1/events.
type ingestRequest struct {
	Events []eventInput `json:"events" binding:"required"`
}

// IngestHandler accepts a batch of usage events for the authenticated key's
// organization. The batch is inserted as a whole; a malformed event rejects
// the entire request so callers never have to reconcile partial writes.
// POST /v1/events
func (h *Handlers) IngestHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.MustGet(middleware.ContextAPIKeyKey).(*models.APIKey)

		var req ingestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "events array is required"})
			return
		}

		if len(req.Events) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "events array must not be empty"})
			return
		}
		if len(req.Events) > maxBatchSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "batch exceeds 500 events"})
			return
		}

		batch := make([]*models.Event, 0, len(req.Events))
		for i, in := range req.Events {
			name := strings.TrimSpace(in.Name)
			if name == "" || len(name) > maxEventNameLength {
				c.JSON(http.StatusBadRequest, gin.H{
					"error": "event name is required and must be at most 200 characters",
					"index": i,
				})
				return
			}
			batch = append(batch, &models.Event{
				OrgID:    key.OrgID,
				APIKeyID: key.ID,
				Name:     name,
				Payload:  in.Payload,
			})
		}

		accepted, err := h.events.InsertBatch(c.Request.Context(), batch)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record events"})
			return
		}

		telemetry.EventsIngestedTotal.Add(float64(accepted))
		c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
	}
}

// CheckHandler reports the identity behind the presented API key. Useful for
// integrators verifying a freshly minted key before wiring it into a client.
// GET /v1/apikey-check
func (h *Handlers) CheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.MustGet(middleware.ContextAPIKeyKey).(*models.APIKey)
		c.JSON(http.StatusOK, gin.H{
			"key_id":     key.ID,
			"org_id":     key.OrgID,
			"name":       key.Name,
			"key_prefix": key.KeyPrefix,
		})
	}
}
