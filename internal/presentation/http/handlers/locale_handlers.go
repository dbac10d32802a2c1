package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/domain/locale"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/geoip"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
	"github.com/mayanov/tarotsite-go/internal/presentation/http/middleware"
)

// LocaleHandlers serves the visitor's market decision
type LocaleHandlers struct {
	localeService *services.LocaleService
	cookieTTL     time.Duration
	secureCookies bool
	logger        *logging.ChanneledLogger
	perfTracker   *performance.Tracker
}

// NewLocaleHandlers creates locale handlers with injected dependencies
func NewLocaleHandlers(localeService *services.LocaleService, cookieTTL time.Duration, secureCookies bool,
	logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LocaleHandlers {
	return &LocaleHandlers{
		localeService: localeService,
		cookieTTL:     cookieTTL,
		secureCookies: secureCookies,
		logger:        logger,
		perfTracker:   perfTracker,
	}
}

type localeResponse struct {
	locale.Decision
	Language string `json:"language"`
	Market   string `json:"market"`
}

// GetLocale handles GET /api/v1/locale - resolves the visitor's market
func (h *LocaleHandlers) GetLocale(c *gin.Context) {
	sc := sessionContext(c)
	marker := h.perfTracker.StartOperation("get_locale_request", sc.VisitorID)
	defer marker.Complete()

	ip := sc.ClientIP
	if !geoip.IsPublicIP(ip) {
		ip = ""
	}

	req := locale.Request{
		IP:            ip,
		Geo:           strings.ToLower(strings.TrimSpace(c.Query("geo"))),
		SimulateError: c.Query("simulate_geo_error") == "true",
		Retry:         c.Query("retry") == "true",
	}

	var store locale.CountryStore
	if !h.localeService.UsesServerStore() {
		store = middleware.NewCookieCountryStore(c, h.cookieTTL, h.secureCookies)
	}

	decision := h.localeService.Resolve(c.Request.Context(), sc, req, store)
	marker.SetSuccess(true)

	lang := decision.Language().String()
	c.Header("Content-Language", lang)
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, localeResponse{
		Decision: decision,
		Language: lang,
		Market:   decision.Market(),
	})
}
