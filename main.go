package main

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"

	"projecthub/config"
	"projecthub/logging"
	"projecthub/models"
	"projecthub/routes"
)

func main() {
	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	if err := logging.Setup(config.AppConfig); err != nil {
		logrus.Fatalf("Failed to set up logging: %v", err)
	}
	logger := logging.Component("server")

	if dsn := config.AppConfig.SentryDSN; dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         dsn,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.WithError(err).Warn("Sentry initialization failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	if promoted, err := models.PromoteAdmin(config.DB, config.AppConfig.AdminEmail); err != nil {
		logger.WithError(err).Error("Failed to apply ADMIN_EMAIL")
	} else if promoted {
		logger.WithField("email", config.AppConfig.AdminEmail).Info("Promoted configured admin")
	}

	app := routes.NewApp(config.DB)

	// Start server
	logger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
