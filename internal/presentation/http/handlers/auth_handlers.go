// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

const (
	// AdminCookie carries the admin JWT.
	AdminCookie = "admin_token"
	adminKey    = "adminEmail"
)

// AuthHandlers contains all authentication-related HTTP handlers
type AuthHandlers struct {
	authService   *services.AuthService
	secureCookies bool
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(authService *services.AuthService, secureCookies bool, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AuthHandlers {
	return &AuthHandlers{
		authService:   authService,
		secureCookies: secureCookies,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PostLogin handles POST /api/login - admin authentication
func (h *AuthHandlers) PostLogin(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_login_request", "")
	defer marker.Complete()
	h.logger.Auth().Debug("Received login request", "method", c.Request.Method, "path", c.Request.URL.Path)

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Auth().Debug("Login request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	result, err := h.authService.Login(req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		marker.SetSuccess(false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	case err != nil:
		h.logger.Auth().Error("Login failed", "error", err.Error(), "duration", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Login failed"})
		return
	}

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(AdminCookie, result.Token, int(h.authService.TokenTTL().Seconds()), "/", "", h.secureCookies, true)

	marker.SetSuccess(true)
	h.logger.Perf().Info("Performance for PostLogin request", "duration", time.Since(start), "success", true)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   result.Token,
	})
}

// PostLogout handles POST /api/logout - clears the authentication cookie
func (h *AuthHandlers) PostLogout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(AdminCookie, "", -1, "/", "", h.secureCookies, true)
	h.logger.Auth().Debug("Logout completed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// AuthMiddleware rejects requests without a valid admin token. The token is
// read from the admin_token cookie first, then the Authorization header.
func (h *AuthHandlers) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(AdminCookie)
		if token == "" {
			if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimSpace(authHeader[len("Bearer "):])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied: No token provided"})
			return
		}

		adminEmail, err := h.authService.ValidateToken(token)
		if err != nil {
			h.logger.Auth().Debug("Rejected admin token", "path", c.Request.URL.Path, "error", err.Error())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or Expired Token"})
			return
		}

		c.Set(adminKey, adminEmail)
		c.Next()
	}
}

// currentAdmin returns the email of the authenticated admin.
func currentAdmin(c *gin.Context) string {
	return c.GetString(adminKey)
}
