package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/container"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
)

// SystemHandlers serves health and operational endpoints
type SystemHandlers struct {
	container *container.Container
}

// NewSystemHandlers creates system handlers
func NewSystemHandlers(container *container.Container) *SystemHandlers {
	return &SystemHandlers{container: container}
}

// GetHealth handles GET /healthz. Failure details are logged, never returned.
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	status := http.StatusOK
	checks := gin.H{}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(c.Request.Context()); err != nil {
			h.container.Logger.System().Warn("Health check failed", "dependency", name, "error", err.Error())
			checks[name] = "unavailable"
			status = http.StatusServiceUnavailable
			return
		}
		checks[name] = "ok"
	}

	if h.container.DB != nil {
		check("database", h.container.DB.PingContext)
	}
	if h.container.CountryStores != nil {
		check("redis", h.container.CountryStores.Ping)
	}

	c.JSON(status, gin.H{
		"status":   http.StatusText(status),
		"uptime":   h.container.PerfTracker.Uptime().Round(time.Second).String(),
		"sessions": h.container.TrackingService.SessionCount(),
		"checks":   checks,
	})
}

// GetPerformance handles GET /api/system/performance - aggregated operation timings
func (h *SystemHandlers) GetPerformance(c *gin.Context) {
	stats := h.container.PerfTracker.Stats()
	out := make(gin.H, len(stats))
	for name, s := range stats {
		out[name] = gin.H{
			"count":     s.Count,
			"failures":  s.Failures,
			"slow":      s.SlowCount,
			"averageMs": s.AverageDuration().Milliseconds(),
			"maxMs":     s.MaxDuration.Milliseconds(),
		}
	}
	c.JSON(http.StatusOK, gin.H{"operations": out})
}

// GetLogLevels handles GET /api/system/log-levels
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.container.Logger.GetChannelLevels()})
}

// PutLogLevel handles PUT /api/system/log-levels - changes one channel's level at runtime
func (h *SystemHandlers) PutLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel and level are required"})
		return
	}

	level, err := logging.ParseLevel(req.Level)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.container.Logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.container.Logger.System().Info("Log level changed", "channel", req.Channel, "level", level.String())
	c.JSON(http.StatusOK, gin.H{"success": true, "levels": h.container.Logger.GetChannelLevels()})
}
