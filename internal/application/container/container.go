// Package container provides dependency injection for all singleton services
package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/domain/tracking"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/caching"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/email"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/geoip"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/metrics"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/performance"
	analyticsstore "github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/analytics"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/database"
	userstore "github.com/mayanov/tarotsite-go/internal/infrastructure/persistence/user"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/sinks"
	"github.com/mayanov/tarotsite-go/pkg/config"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	Config      *config.Config
	Logger      *logging.ChanneledLogger
	PerfTracker *performance.Tracker
	Metrics     *metrics.Metrics

	// Application Services
	LocaleService             *services.LocaleService
	TrackingService           *services.TrackingService
	AuthService               *services.AuthService
	DashboardAnalyticsService *services.DashboardAnalyticsService

	// Infrastructure Dependencies
	DB            *database.DB
	CountryStores *caching.RedisCountryStores
	GA4           *sinks.GA4
	Meta          *sinks.Meta
}

// NewContainer creates and wires all singleton services
func NewContainer(ctx context.Context, cfg *config.Config, logger *logging.ChanneledLogger) (*Container, error) {
	m := metrics.New()
	c := &Container{
		Config:      cfg,
		Logger:      logger,
		Metrics:     m,
		PerfTracker: performance.NewTracker(cfg.SlowOperationThreshold, m.ObserveOperation, logger),
	}

	// Event ledger
	phaseStart := time.Now()
	db, err := database.NewConnectionWithLogger(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns:       cfg.DBMaxOpenConns,
		MaxIdleConns:       cfg.DBMaxIdleConns,
		ConnMaxLifetime:    cfg.DBConnMaxLifetime,
		SlowQueryThreshold: cfg.SlowQueryThreshold,
	}, logger)
	if err != nil {
		logger.LogStartupPhase("database", time.Since(phaseStart), false)
		return nil, err
	}
	if err := database.NewTableCreator().CreateSchema(ctx, db); err != nil {
		db.Close()
		logger.LogStartupPhase("database", time.Since(phaseStart), false)
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	c.DB = db
	logger.LogStartupPhase("database", time.Since(phaseStart), true)
	eventRepo := analyticsstore.NewSQLEventRepository(db, logger)

	// Server-side country store
	var countryStores services.CountryStores
	if cfg.RedisEnabled() {
		phaseStart = time.Now()
		client, err := caching.Connect(ctx, caching.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			MaxRetry: cfg.RedisConnectRetry,
		}, logger)
		if err != nil {
			logger.Startup().Warn("Redis unavailable, country codes fall back to cookies", "error", err.Error())
			logger.LogStartupPhase("redis", time.Since(phaseStart), false)
		} else {
			c.CountryStores = caching.NewRedisCountryStores(client, logger)
			countryStores = c.CountryStores
			logger.LogStartupPhase("redis", time.Since(phaseStart), true)
		}
	}

	// Outbound sinks
	clk := clock.New()
	sinkClient := &http.Client{Timeout: cfg.SinkTimeout}
	queueOpts := sinks.QueueOptions{Size: cfg.SinkQueueSize, Workers: cfg.SinkWorkers, Timeout: cfg.SinkTimeout}
	var factory services.SinkFactory
	if cfg.GA4Enabled() {
		c.GA4 = sinks.NewGA4(sinks.GA4Config{
			MeasurementID: cfg.GA4MeasurementID,
			APISecret:     cfg.GA4APISecret,
			Endpoint:      cfg.GA4Endpoint,
		}, sinkClient, queueOpts, clk, m.ObserveSinkDelivery, logger)
		ga4 := c.GA4
		factory.Analytics = func(sc services.SessionContext) tracking.AnalyticsSink {
			return ga4.ForVisitor(sc.VisitorID)
		}
	}
	if cfg.MetaEnabled() {
		c.Meta = sinks.NewMeta(sinks.MetaConfig{
			PixelID:     cfg.MetaPixelID,
			AccessToken: cfg.MetaAccessToken,
			GraphURL:    cfg.MetaGraphURL,
		}, sinkClient, queueOpts, clk, m.ObserveSinkDelivery, logger)
		meta := c.Meta
		factory.Pixel = func(sc services.SessionContext) tracking.PixelSink {
			return meta.ForVisitor(sc.VisitorID, sc.ClientIP, sc.UserAgent, sc.PageURL)
		}
	}
	logger.Startup().Info("Analytics sinks configured", "ga4", cfg.GA4Enabled(), "meta", cfg.MetaEnabled())

	c.TrackingService = services.NewTrackingService(cfg.SessionTTL, cfg.SessionCleanupInterval, factory, eventRepo, m, logger, c.PerfTracker)
	m.RegisterSessionGauge(c.TrackingService.SessionCount)

	geoClient := &http.Client{Timeout: 2 * cfg.GeoProviderTimeout}
	providers := geoip.NewProviders(geoip.DefaultDescriptors(cfg.GeoProviderTimeout), geoClient)
	c.LocaleService = services.NewLocaleService(providers, countryStores, c.TrackingService, m, logger, c.PerfTracker)

	// Admin
	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		jwtSecret, err = security.GenerateSecureKey(64)
		if err != nil {
			c.Close(ctx)
			return nil, err
		}
		logger.Startup().Warn("JWT_SECRET not set, using an ephemeral secret; admin sessions end on restart")
	}
	mailer, err := email.NewService(email.Config{
		APIKey:       cfg.ResendAPIKey,
		FromEmail:    cfg.EmailFrom,
		FromName:     cfg.EmailFromName,
		DashboardURL: cfg.AdminURL,
	})
	if err != nil && !errors.Is(err, email.ErrNotConfigured) {
		c.Close(ctx)
		return nil, err
	}
	adminRepo := userstore.NewCSVAdminRepository(cfg.AdminUsersFile, logger)
	c.AuthService = services.NewAuthService(logger, c.PerfTracker, adminRepo, mailer, jwtSecret, cfg.TokenTTL)
	c.DashboardAnalyticsService = services.NewDashboardAnalyticsService(eventRepo, logger, c.PerfTracker)

	return c, nil
}

// Close drains the sinks and releases connections.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.GA4 != nil {
		errs = append(errs, c.GA4.Close(ctx))
	}
	if c.Meta != nil {
		errs = append(errs, c.Meta.Close(ctx))
	}
	if c.CountryStores != nil {
		errs = append(errs, c.CountryStores.Close())
	}
	if c.DB != nil {
		errs = append(errs, c.DB.Close())
	}
	return errors.Join(errs...)
}
