package services

import (
	"context"
	"errors"
	"time"

	"github.com/mayanov/tarotsite-go/internal/domain/locale"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/metrics"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
)

// CountryStores hands out the server-side country store of a visitor.
type CountryStores interface {
	ForVisitor(visitorID string) locale.CountryStore
}

// LocaleService resolves a visitor's market and records the outcome.
type LocaleService struct {
	resolver    *locale.Resolver
	stores      CountryStores
	tracking    *TrackingService
	metrics     *metrics.Metrics
	logger      *logging.ChanneledLogger
	perfTracker *performance.Tracker
}

// NewLocaleService wires the provider waterfall. stores may be nil, in which
// case the store passed to Resolve is used.
func NewLocaleService(providers []locale.Provider, stores CountryStores, trackingService *TrackingService,
	m *metrics.Metrics, logger *logging.ChanneledLogger, perfTracker *performance.Tracker) *LocaleService {
	s := &LocaleService{
		stores:      stores,
		tracking:    trackingService,
		metrics:     m,
		logger:      logger,
		perfTracker: perfTracker,
	}
	s.resolver = locale.NewResolver(providers, locale.WithObserver(s))
	return s
}

// UsesServerStore reports whether country codes live server-side.
func (s *LocaleService) UsesServerStore() bool {
	return s.stores != nil
}

// Resolve runs the precedence chain for one visitor. requestStore is the
// request-scoped store used when no server-side store is configured.
func (s *LocaleService) Resolve(ctx context.Context, sc SessionContext, req locale.Request, requestStore locale.CountryStore) locale.Decision {
	start := time.Now()
	marker := s.perfTracker.StartOperation("resolve_locale", sc.VisitorID)
	defer marker.Complete()

	store := requestStore
	if s.stores != nil {
		store = s.stores.ForVisitor(sc.VisitorID)
	}

	decision := s.resolver.ResolveLocale(ctx, req, store, s.tracking.Tracker(sc))
	s.metrics.ObserveResolution(string(decision.Source), decision.IsLocal)

	logger := s.logger.WithVisitor(logging.ChannelLocale, sc.VisitorID)
	if decision.Failed {
		logger.Warn("Locale resolution fell back to global",
			"source", decision.Source, "retry", req.Retry, "duration", time.Since(start))
	} else {
		logger.Info("Locale resolved",
			"source", decision.Source, "market", decision.Market(), "country", decision.CountryCode,
			"retry", req.Retry, "duration", time.Since(start))
	}

	marker.AddMetadata("source", string(decision.Source))
	marker.SetSuccess(!decision.Failed)
	return decision
}

// ProviderAttempt implements locale.Observer.
func (s *LocaleService) ProviderAttempt(provider string, err error, d time.Duration) {
	outcome := attemptOutcome(err)
	s.metrics.ObserveProviderAttempt(provider, outcome, d)
	if err != nil {
		s.logger.Locale().Debug("Geolocation provider failed",
			"provider", provider, "outcome", outcome, "error", err.Error(), "duration", d)
		return
	}
	s.logger.Locale().Debug("Geolocation provider answered", "provider", provider, "duration", d)
}

// StoreError implements locale.Observer.
func (s *LocaleService) StoreError(op string, err error) {
	s.logger.Cache().Warn("Country store operation failed", "operation", op, "error", err.Error())
}

func attemptOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, locale.ErrUnusable):
		return "unusable"
	default:
		return "error"
	}
}
