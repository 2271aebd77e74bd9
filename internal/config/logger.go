package config

import "github.com/sirupsen/logrus"

// NewLogger builds a logrus.Logger at the configured level. Adapted from
// the teacher's internal/utils.NewLogger.
func NewLogger(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	switch level {
	case "DEBUG":
		logger.SetLevel(logrus.DebugLevel)
	case "INFO":
		logger.SetLevel(logrus.InfoLevel)
	case "WARN":
		logger.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logger.SetLevel(logrus.ErrorLevel)
	}

	return logger
}
