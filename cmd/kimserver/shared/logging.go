package shared

import (
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures console logging with timestamps
func SetupLogger(debug bool) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})
	if debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// SetupLoggerWithLevel configures console logging at a named level. Unknown
// levels fall back to info.
func SetupLoggerWithLevel(level string) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
	})

	if lvl, err := log.ParseLevel(level); err == nil {
		logger.SetLevel(lvl)
	}
	return logger
}
