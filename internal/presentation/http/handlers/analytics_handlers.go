package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

// AnalyticsHandlers contains the admin dashboard handlers
type AnalyticsHandlers struct {
	dashboardAnalyticsService *services.DashboardAnalyticsService
	logger                    *logging.ChanneledLogger
	perfTracker               *performance.Tracker
}

// NewAnalyticsHandlers creates analytics handlers with injected dependencies
func NewAnalyticsHandlers(dashboardAnalyticsService *services.DashboardAnalyticsService,
	logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *AnalyticsHandlers {
	return &AnalyticsHandlers{
		dashboardAnalyticsService: dashboardAnalyticsService,
		logger:                    logger,
		perfTracker:               perfTracker,
	}
}

// HandleDashboardAnalytics handles GET /api/analytics?startDate=&endDate=
func (h *AnalyticsHandlers) HandleDashboardAnalytics(c *gin.Context) {
	start := time.Now()
	marker := h.perfTracker.StartOperation("get_dashboard_request", "")
	defer marker.Complete()
	h.logger.Analytics().Debug("Received dashboard analytics request", "method", c.Request.Method, "path", c.Request.URL.Path)

	report, err := h.dashboardAnalyticsService.ComputeDashboard(c.Request.Context(),
		c.Query("startDate"), c.Query("endDate"))
	if errors.Is(err, services.ErrInvalidDateRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.logger.Analytics().Error("Dashboard analytics failed", "error", err.Error(), "duration", time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch analytics data"})
		return
	}

	marker.SetSuccess(true)
	c.JSON(http.StatusOK, report)
}
