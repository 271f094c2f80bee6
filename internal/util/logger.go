// Package util provides helper functions for logging events
package util

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logrus logger. format is "text" or "json".
func SetupLogger(level, format string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(lvl)
	logrus.SetOutput(os.Stderr)
	if format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Component returns a log entry tagged with the emitting component.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}

// Info prints general system information messages.
func Info(msg string, args ...any) {
	logrus.Infof(msg, args...)
}

// Warn prints recoverable problems.
func Warn(msg string, args ...any) {
	logrus.Warnf(msg, args...)
}

// Error prints error messages.
func Error(msg string, args ...any) {
	logrus.Errorf(msg, args...)
}
