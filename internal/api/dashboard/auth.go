// Package dashboard implements the authenticated management HTTP handlers:
// account signup and login, organization and membership administration, and
// API key lifecycle. All routes except signup and login require a dashboard
// session JWT (see internal/middleware/auth.go); none of them accept API keys,
// which are only honoured on the metered /v1 surface.
package dashboard

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smplatform/smplatform/internal/auth"
	"github.com/smplatform/smplatform/internal/config"
	"github.com/smplatform/smplatform/internal/db/models"
	"github.com/smplatform/smplatform/internal/db/repositories"
	"github.com/smplatform/smplatform/internal/middleware"
)

const minPasswordLength = 8

// AuthHandlers handles signup, login, and session introspection.
type AuthHandlers struct {
	cfg   *config.Config
	users *repositories.UserRepository
}

// NewAuthHandlers creates a new AuthHandlers instance.
func NewAuthHandlers(cfg *config.Config, users *repositories.UserRepository) *AuthHandlers {
	return &AuthHandlers{cfg: cfg, users: users}
}

// SignupRequest is the body for POST /auth/signup.
type SignupRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// sessionResponse is returned from both signup and login.
type sessionResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// SignupHandler registers a new dashboard account and returns a session token.
// POST /auth/signup
func (h *AuthHandlers) SignupHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SignupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if !strings.Contains(email, "@") {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email address"})
			return
		}
		if len(req.Password) < minPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
			return
		}

		user := &models.User{Email: email, PasswordHash: hash}
		if err := h.users.CreateUser(c.Request.Context(), user); err != nil {
			if err == repositories.ErrEmailTaken {
				c.JSON(http.StatusConflict, gin.H{"error": "email is already registered"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create account"})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.JWT.Expiry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}

		c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user})
	}
}

// LoginHandler authenticates a dashboard account and returns a session token.
// Unknown emails and wrong passwords produce the same response so the endpoint
// cannot be used to enumerate accounts.
// POST /auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		user, err := h.users.GetUserByEmail(c.Request.Context(), email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
			return
		}
		if user == nil || !auth.CheckPassword(req.Password, user.PasswordHash) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}

		token, err := auth.GenerateJWT(user.ID, user.Email, h.cfg.Auth.JWT.Expiry)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create session"})
			return
		}

		c.JSON(http.StatusOK, sessionResponse{Token: token, User: user})
	}
}

// MeHandler returns the authenticated user. The JWT middleware has already
// loaded the account, so this is a pure context read.
// GET /auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := c.MustGet(middleware.ContextUserKey).(*models.User)
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
