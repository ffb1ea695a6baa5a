// Package logger provides a wrapper around logrus for structured logging.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options controls logger construction
type Options struct {
	Level  string
	Format string // "json" or "text"; empty picks from ENVIRONMENT
	Output io.Writer
}

// New creates a logger from explicit options
func New(opts Options) *logrus.Logger {
	logger := logrus.New()

	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	} else {
		logger.SetOutput(os.Stdout)
	}

	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		logger.Warnf("Invalid log level '%s', defaulting to info", opts.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	format := strings.ToLower(opts.Format)
	if format == "" && os.Getenv("ENVIRONMENT") == "production" {
		format = "json"
	}

	// JSON in production, colored text for development
	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   opts.Output == nil,
		})
	}

	return logger
}
