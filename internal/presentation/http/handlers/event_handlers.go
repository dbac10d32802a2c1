package handlers

import (
	"errors"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

// GA4 event names: letters, digits and underscores, starting with a letter.
var eventNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{0,39}$`)

// EventHandlers accepts interaction events from the site
type EventHandlers struct {
	trackingService *services.TrackingService
	logger          *logging.ChanneledLogger
	perfTracker     *performance.Tracker
}

// NewEventHandlers creates event handlers with injected dependencies
func NewEventHandlers(trackingService *services.TrackingService, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *EventHandlers {
	return &EventHandlers{
		trackingService: trackingService,
		logger:          logger,
		perfTracker:     perfTracker,
	}
}

// PostEvent handles POST /api/v1/events
func (h *EventHandlers) PostEvent(c *gin.Context) {
	start := time.Now()
	sc := sessionContext(c)
	marker := h.perfTracker.StartOperation("post_event_request", sc.VisitorID)
	defer marker.Complete()

	var req services.EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Analytics().Debug("Event request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}
	if !eventNamePattern.MatchString(req.Name) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event name"})
		return
	}
	if req.PixelEventName != "" && !eventNamePattern.MatchString(req.PixelEventName) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pixel event name"})
		return
	}

	h.trackingService.TrackEvent(sc, req)

	h.logger.WithVisitor(logging.ChannelAnalytics, sc.VisitorID).Debug("Event accepted",
		"event", req.Name, "pixelEvent", req.PixelEventName, "duration", time.Since(start))
	marker.SetSuccess(true)
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}

// PostPageView handles POST /api/v1/events/pageview
func (h *EventHandlers) PostPageView(c *gin.Context) {
	sc := sessionContext(c)
	marker := h.perfTracker.StartOperation("post_pageview_request", sc.VisitorID)
	defer marker.Complete()

	var body struct {
		Params tracking.Properties `json:"params"`
	}
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	h.trackingService.TrackPageView(sc, body.Params)
	marker.SetSuccess(true)
	c.JSON(http.StatusAccepted, gin.H{"success": true})
}
