package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/domain/user"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

// UserHandlers manages admin accounts
type UserHandlers struct {
	authService *services.AuthService
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewUserHandlers creates user handlers with injected dependencies
func NewUserHandlers(authService *services.AuthService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *UserHandlers {
	return &UserHandlers{
		authService: authService,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// GetUsers handles GET /api/users - lists admin emails
func (h *UserHandlers) GetUsers(c *gin.Context) {
	marker := h.perfTracker.StartOperation("get_users_request", "")
	defer marker.Complete()

	emails, err := h.authService.ListUsers()
	if err != nil {
		h.logger.Auth().Error("Failed to list users", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, emails)
}

// PostAddUser handles POST /api/users/add
func (h *UserHandlers) PostAddUser(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("post_add_user_request", "")
	defer marker.Complete()

	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	err := h.authService.AddUser(currentAdmin(c), req.Email, req.Password)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	case errors.Is(err, user.ErrUserExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
		return
	case err != nil:
		h.logger.Auth().Error("Failed to add user", "error", err.Error(), "duration", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add user"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// DeleteUser handles DELETE /api/users
func (h *UserHandlers) DeleteUser(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("delete_user_request", "")
	defer marker.Complete()

	var req struct {
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	}

	err := h.authService.DeleteUser(currentAdmin(c), req.Email)
	switch {
	case errors.Is(err, services.ErrMissingFields):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is required"})
		return
	case errors.Is(err, services.ErrSelfDelete):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete your own account"})
		return
	case errors.Is(err, services.ErrLastAdmin):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot delete the only admin user"})
		return
	case errors.Is(err, user.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	case err != nil:
		h.logger.Auth().Error("Failed to delete user", "error", err.Error(), "duration", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete user"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
