package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mssola/user_agent"
	"github.com/patrickmn/go-cache"

	"github.com/mayanov/tarotsite-go/internal/domain/analytics"
	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/metrics"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

const ledgerWriteTimeout = 2 * time.Second

// SessionContext identifies the visitor behind a request.
type SessionContext struct {
	VisitorID string
	ClientIP  string
	UserAgent string
	PageURL   string
}

// SinkFactory builds the per-visitor destinations. A nil func means the
// destination is not configured.
type SinkFactory struct {
	Analytics func(sc SessionContext) tracking.AnalyticsSink
	Pixel     func(sc SessionContext) tracking.PixelSink
}

// EventRequest is one interaction event reported by the site.
type EventRequest struct {
	Name           string              `json:"name" binding:"required"`
	Params         tracking.Properties `json:"params"`
	PixelEventName string              `json:"pixelEventName"`
	PixelParams    tracking.Properties `json:"pixelParams"`
}

// TrackingService owns one Tracker per visitor session.
type TrackingService struct {
	sessions *cache.Cache
	mu       sync.Mutex

	sinks       SinkFactory
	events      analytics.EventRepository
	metrics     *metrics.Metrics
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewTrackingService creates the session registry. events may be nil when
// the ledger is disabled.
func NewTrackingService(sessionTTL, cleanupInterval time.Duration, sinks SinkFactory, events analytics.EventRepository,
	m *metrics.Metrics, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *TrackingService {
	return &TrackingService{
		sessions:    cache.New(sessionTTL, cleanupInterval),
		sinks:       sinks,
		events:      events,
		metrics:     m,
		logger:      logger,
		perfTracker: perfTracker,
	}
}

// RequestAware is implemented by sinks that report per-request visitor data
// such as the page URL.
type RequestAware interface {
	UpdateRequest(clientIP, userAgent, sourceURL string)
}

type session struct {
	tracker *tracking.Tracker
	aware   []RequestAware
}

// Tracker returns the visitor's tracker, creating the session on first use.
// Every access extends the session and hands the current request data to
// request-aware sinks.
func (s *TrackingService) Tracker(sc SessionContext) *tracking.Tracker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, found := s.sessions.Get(sc.VisitorID); found {
		sess := cached.(*session)
		for _, sink := range sess.aware {
			sink.UpdateRequest(sc.ClientIP, sc.UserAgent, sc.PageURL)
		}
		s.sessions.SetDefault(sc.VisitorID, sess)
		return sess.tracker
	}

	env, aware := s.environment(sc)
	sess := &session{tracker: tracking.NewTracker(env), aware: aware}
	s.sessions.SetDefault(sc.VisitorID, sess)
	s.logger.WithVisitor(logging.ChannelCache, sc.VisitorID).Debug("Visitor session created",
		"sessions", s.sessions.ItemCount())
	return sess.tracker
}

// TrackEvent forwards an interaction event through the visitor's tracker.
func (s *TrackingService) TrackEvent(sc SessionContext, req EventRequest) {
	marker := s.perfTracker.StartOperation("track_event", req.Name)
	defer marker.Complete()

	s.Tracker(sc).TrackEvent(req.Name, req.Params, req.PixelEventName, req.PixelParams)
	marker.SetSuccess(true)
}

// TrackPageView records a page view for the visitor.
func (s *TrackingService) TrackPageView(sc SessionContext, params tracking.Properties) {
	marker := s.perfTracker.StartOperation("track_page_view", sc.PageURL)
	defer marker.Complete()

	s.Tracker(sc).TrackPageView(params)
	marker.SetSuccess(true)
}

// SessionCount reports the number of live sessions.
func (s *TrackingService) SessionCount() int {
	return s.sessions.ItemCount()
}

func (s *TrackingService) environment(sc SessionContext) (tracking.Environment, []RequestAware) {
	env := tracking.Sinks{
		EventLedger: &eventLedger{
			repo:      s.events,
			visitorID: sc.VisitorID,
			device:    DeviceCategory(sc.UserAgent),
			metrics:   s.metrics,
			logger:    s.logger,
		},
	}
	var aware []RequestAware
	if s.sinks.Analytics != nil {
		if sink := s.sinks.Analytics(sc); sink != nil {
			env.AnalyticsSink = sink
			if ra, ok := sink.(RequestAware); ok {
				aware = append(aware, ra)
			}
		}
	}
	if s.sinks.Pixel != nil {
		if sink := s.sinks.Pixel(sc); sink != nil {
			env.PixelSink = sink
			if ra, ok := sink.(RequestAware); ok {
				aware = append(aware, ra)
			}
		}
	}
	return env, aware
}

// eventLedger counts every emitted event and stores it when a repository is configured.
type eventLedger struct {
	repo      analytics.EventRepository
	visitorID string
	device    string
	metrics   *metrics.Metrics
	logger    *logging.ChanneledLogger
}

func (l *eventLedger) Record(event tracking.TrackedEvent) {
	if l.metrics != nil {
		l.metrics.ObserveEvent(event.Name)
	}
	if l.repo == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), ledgerWriteTimeout)
	defer cancel()

	err := l.repo.Store(ctx, &analytics.Event{
		VisitorID: l.visitorID,
		Name:      event.Name,
		PixelName: event.SecondaryEventName,
		Country:   stringProperty(event.PrimaryParams, "country"),
		City:      stringProperty(event.PrimaryParams, "city"),
		Device:    l.device,
		ItemName:  stringProperty(event.PrimaryParams, "item_name"),
		Params:    event.PrimaryParams,
	})
	if err != nil {
		l.logger.WithVisitor(logging.ChannelAnalytics, l.visitorID).Error("Failed to record event",
			"event", event.Name, "error", err.Error())
	}
}

// DeviceCategory maps a User-Agent header to desktop, mobile, tablet or bot.
func DeviceCategory(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := user_agent.New(userAgent)
	lower := strings.ToLower(userAgent)
	switch {
	case ua.Bot():
		return "bot"
	case strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") ||
		(strings.Contains(lower, "android") && !strings.Contains(lower, "mobile")):
		return "tablet"
	case ua.Mobile():
		return "mobile"
	default:
		return "desktop"
	}
}

func stringProperty(props tracking.Properties, key string) string {
	v, ok := props[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
