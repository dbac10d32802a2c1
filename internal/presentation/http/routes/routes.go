// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/container"
	"github.com/mayanov/tarotsite-go/internal/presentation/http/handlers"
	"github.com/mayanov/tarotsite-go/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	cfg := container.Config
	secure := cfg.Production

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		container.Logger.Startup().Error("Invalid trusted proxies, forwarding headers are ignored", "error", err.Error())
		_ = r.SetTrustedProxies(nil)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestMiddleware(container.Logger))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	// Initialize handlers
	localeHandlers := handlers.NewLocaleHandlers(container.LocaleService, cfg.CountryCookieTTL, secure, container.Logger, container.PerfTracker)
	eventHandlers := handlers.NewEventHandlers(container.TrackingService, container.Logger, container.PerfTracker)
	paymentHandlers := handlers.NewPaymentHandlers(container.Logger)
	authHandlers := handlers.NewAuthHandlers(container.AuthService, secure, container.Logger, container.PerfTracker)
	userHandlers := handlers.NewUserHandlers(container.AuthService, container.Logger, container.PerfTracker)
	analyticsHandlers := handlers.NewAnalyticsHandlers(container.DashboardAnalyticsService, container.Logger, container.PerfTracker)
	systemHandlers := handlers.NewSystemHandlers(container)

	r.GET("/healthz", systemHandlers.GetHealth)
	r.GET("/metrics", gin.WrapH(container.Metrics.Handler()))

	// Visitor-facing API
	v1 := r.Group("/api/v1")
	v1.Use(middleware.VisitorMiddleware(secure))
	{
		v1.GET("/locale", localeHandlers.GetLocale)

		events := v1.Group("/events")
		{
			events.POST("", eventHandlers.PostEvent)
			events.POST("/pageview", eventHandlers.PostPageView)
		}

		v1.GET("/payment/redirect", paymentHandlers.GetPaymentRedirect)
	}

	// Admin API
	api := r.Group("/api")
	{
		api.POST("/login", authHandlers.PostLogin)
		api.POST("/logout", authHandlers.PostLogout)

		admin := api.Group("")
		admin.Use(authHandlers.AuthMiddleware())
		{
			admin.GET("/users", userHandlers.GetUsers)
			admin.POST("/users/add", userHandlers.PostAddUser)
			admin.DELETE("/users", userHandlers.DeleteUser)

			admin.GET("/analytics", analyticsHandlers.HandleDashboardAnalytics)
			admin.GET("/system/performance", systemHandlers.GetPerformance)
			admin.GET("/system/log-levels", systemHandlers.GetLogLevels)
			admin.PUT("/system/log-levels", systemHandlers.PutLogLevel)
		}
	}

	return r
}
