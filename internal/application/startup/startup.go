// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/container"
	"github.com/mayanov/tarotsite-go/internal/domain/locale"
	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/presentation/http/server"
	"github.com/mayanov/tarotsite-go/pkg/config"
)

// Initialize performs the complete startup sequence and blocks until shutdown
func Initialize() error {
	start := time.Now().UTC()

	// Step 1: Load configuration
	log.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg.LogOverrides()
	setupLogging(cfg)

	// Step 2: Create the channeled logger
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Close()
	logger.Startup().Info("Channeled logging initialized", "devGeoOverride", locale.DevOverrideEnabled, "production", cfg.Production)
	if locale.DevOverrideEnabled && cfg.Production {
		logger.Startup().Warn("Binary built with the devgeo tag is running in production mode")
	}

	ctx, cancelStartup := context.WithTimeout(context.Background(), cfg.RedisConnectRetry+30*time.Second)
	defer cancelStartup()

	// Step 3: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	appContainer, err := container.NewContainer(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize container: %w", err)
	}
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 4: Start HTTP server
	httpServer := server.New(cfg, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- httpServer.Start()
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", cfg.Port)

	// Wait for shutdown signal or server failure
	select {
	case sig := <-gracefulShutdown:
		logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
			appContainer.Close(context.Background())
			return err
		}
	}

	shutdownStart := time.Now()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	logger.Shutdown().Info("Draining analytics sinks and closing connections...")
	if err := appContainer.Close(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error closing container", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

func newLogger(cfg *config.Config) (*logging.ChanneledLogger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	loggerConfig := logging.DefaultLoggerConfig()
	loggerConfig.DefaultLevel = level
	loggerConfig.OutputToFile = cfg.LogToFile
	loggerConfig.LogDirectory = cfg.LogDirectory
	loggerConfig.JSONFormat = cfg.LogJSONFormat
	return logging.NewChanneledLogger(loggerConfig)
}

// setupLogging configures application logging
func setupLogging(cfg *config.Config) {
	if cfg.GinMode == gin.ReleaseMode || cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
