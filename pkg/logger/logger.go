package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New creates a logger at the given level. An unknown level falls back to
// info with a warning rather than failing startup.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	logLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Unknown log level %q, using info", level)
	}
	logger.SetLevel(logLevel)

	return logger
}
