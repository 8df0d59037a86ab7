package main

import (
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"worksync/config"
	"worksync/middleware"
	"worksync/routes"
	"worksync/utils"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	utils.InitLogger(config.AppConfig.Log, config.AppConfig.IsProduction())
	logger := utils.NewLogger("server")

	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "worksync",
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())

	// Add CORS middleware
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = config.AppConfig.CORSOrigins
	app.Use(middleware.CORS(corsConfig))

	// Setup routes
	routes.SetupRoutes(app, config.DB, routes.Options{
		Location:         config.AppConfig.Location(),
		Metrics:          middleware.NewMetrics(prometheus.DefaultRegisterer),
		RateLimit:        config.AppConfig.RateLimitWrites,
		RateLimitStorage: middleware.RateLimitStorage(config.AppConfig.Redis),
		AccessLog:        true,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		logger.Info("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.WithError(err).Error("Graceful shutdown failed")
		}
	}()

	// Start server
	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}

	if sqlDB, err := config.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("Server stopped")
}

// errorHandler answers errors that escape the controllers with the usual envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	if code >= fiber.StatusInternalServerError {
		utils.LogError("unhandled_error", err, map[string]interface{}{
			"method": c.Method(),
			"path":   c.Path(),
		})
		return utils.ErrorResponse(c, code, "Internal server error", nil)
	}
	return utils.ErrorResponse(c, code, err.Error(), nil)
}
