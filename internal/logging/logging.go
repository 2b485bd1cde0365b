// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"
)

// New configures the standard logrus logger from a level name and a format
// ("text" or "json") and returns it. Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return Configure(logrus.StandardLogger(), os.Stdout, level, format)
}

// Configure applies level and format to log, writing to out.
func Configure(log *logrus.Logger, out io.Writer, level, format string) *logrus.Logger {
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log
}

// GormLevel maps the application log level to gorm's: SQL is only logged
// at debug level.
func GormLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug", "trace":
		return logger.Info
	default:
		return logger.Silent
	}
}
