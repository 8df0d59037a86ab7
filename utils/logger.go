package utils

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"worksync/config"
)

var loggerOnce sync.Once

// InitLogger configures the global logrus logger from config: level, JSON or
// text output, and an optional rotating log file next to stdout.
func InitLogger(cfg config.LogConfig, production bool) {
	loggerOnce.Do(func() {
		level, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		logrus.SetLevel(level)

		if cfg.Format == "json" || (cfg.Format == "" && production) {
			logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
		} else {
			logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}

		if cfg.File == "" {
			logrus.SetOutput(os.Stdout)
			return
		}

		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			logrus.WithError(err).Warn("Failed to create log directory, logging to stdout only")
			logrus.SetOutput(os.Stdout)
			return
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}))
		logrus.WithField("file", cfg.File).Info("Logger initialized")
	})
}

// NewLogger returns an entry tagged with the component that owns it.
func NewLogger(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// LogError logs errors with context and reports them to Sentry
func LogError(errorType string, err error, context map[string]interface{}) {
	log := logrus.WithFields(logrus.Fields{
		"error_type": errorType,
		"error":      err.Error(),
	})

	for k, v := range context {
		log = log.WithField(k, v)
	}

	log.Error("Error occurred")

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("error_type", errorType)
		for k, v := range context {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(err)
	})
}

// LogEvent logs events with structured context
func LogEvent(eventType string, data map[string]interface{}) {
	log := logrus.WithFields(logrus.Fields{
		"event_type": eventType,
	})

	for k, v := range data {
		log = log.WithField(k, v)
	}

	log.Info("Event occurred")

	sentry.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "info",
		Category:  eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
}
