package dashboard

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/middleware"
	"github.com/smplatform/smplatform/internal/services"
)

// OrgHandlers handles organization, membership, and usage summary endpoints.
type OrgHandlers struct {
	orgs   *services.OrgService
	events *repositories.EventRepository
}

// NewOrgHandlers creates a new OrgHandlers instance.
func NewOrgHandlers(orgs *services.OrgService, events *repositories.EventRepository) *OrgHandlers {
	return &OrgHandlers{orgs: orgs, events: events}
}

// CreateOrganizationRequest is the body for POST /orgs.
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required"`
}

// AddMemberRequest is the body for POST /orgs/:org_id/members.
type AddMemberRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role" binding:"required"`
}

// currentUserID reads the authenticated user ID stored by JWTAuthMiddleware.
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(middleware.ContextUserIDKey)
}

// pathID parses a numeric path parameter. The second return is false when the
// segment is not a positive integer; the caller responds 400.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// writeServiceError maps service-layer sentinel errors to HTTP responses.
// Unrecognized errors become an opaque 500.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
	case errors.Is(err, repositories.ErrDuplicateMember):
		c.JSON(http.StatusConflict, gin.H{"error": "user is already a member"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// CreateOrganizationHandler creates an organization owned by the caller.
// POST /orgs
func (h *OrgHandlers) CreateOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateOrganizationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		org, err := h.orgs.CreateOrganization(c.Request.Context(), req.Name, currentUserID(c))
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"organization": org})
	}
}

// ListOrganizationsHandler lists the organizations the caller belongs to.
// GET /orgs
func (h *OrgHandlers) ListOrganizationsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgs, err := h.orgs.ListForUser(c.Request.Context(), currentUserID(c))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if orgs == nil {
			orgs = []*models.Organization{}
		}
		c.JSON(http.StatusOK, gin.H{"organizations": orgs})
	}
}

// GetOrganizationHandler returns a single organization the caller belongs to.
// Non-members get 403 rather than a palette of different errors.
// GET /orgs/:org_id
func (h *OrgHandlers) GetOrganizationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}

		org, _, err := h.orgs.RequireMember(c.Request.Context(), orgID, currentUserID(c), models.RoleMember)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"organization": org})
	}
}

// AddMemberHandler adds an existing user to an organization by email.
// Role grant rules are enforced by the service: admins may add members,
// only owners may add admins or owners.
// POST /orgs/:org_id/members
func (h *OrgHandlers) AddMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}

		var req AddMemberRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and role are required"})
			return
		}

		member, err := h.orgs.AddMemberByEmail(c.Request.Context(), orgID, currentUserID(c), req.Email, models.Role(req.Role))
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"member": member})
	}
}

// RemoveMemberHandler removes a member from an organization. Role rules live
// in the service: admins remove plain members, owners remove anyone, and the
// last owner is immovable.
// DELETE /orgs/:org_id/members/:user_id
func (h *OrgHandlers) RemoveMemberHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}
		userID, ok := pathID(c, "user_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
			return
		}

		if err := h.orgs.RemoveMember(c.Request.Context(), orgID, currentUserID(c), userID); err != nil {
			writeServiceError(c, err)
			return
		}

		c.Status(http.StatusNoContent)
	}
}

// UsageHandler reports the organization's recorded event count alongside its
// configured quota and rate limit. Any member may view it.
// GET /orgs/:org_id/usage
func (h *OrgHandlers) UsageHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}

		org, _, err := h.orgs.RequireMember(c.Request.Context(), orgID, currentUserID(c), models.RoleMember)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		total, err := h.events.CountForOrg(c.Request.Context(), orgID)
		if err != nil {
			writeServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"org_id":         org.ID,
			"events_total":   total,
			"monthly_quota":  org.MonthlyQuota,
			"rate_limit_rpm": org.RateLimitRPM,
		})
	}
}

// ListMembersHandler lists an organization's members with their emails.
// GET /orgs/:org_id/members
func (h *OrgHandlers) ListMembersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID, ok := pathID(c, "org_id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid organization id"})
			return
		}

		members, err := h.orgs.ListMembers(c.Request.Context(), orgID, currentUserID(c))
		if err != nil {
			writeServiceError(c, err)
			return
		}
		if members == nil {
			members = []*models.MemberWithUser{}
		}
		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}
