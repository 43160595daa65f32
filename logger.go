package httpcache

import (
	"log/slog"
	"sync"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

// SetLogger overrides the package-level logger used for cache fault and
// parse-fallback diagnostics. Safe to call before constructing a Transport.
func SetLogger(l *slog.Logger) {
	logger = l
}

// GetLogger returns the active logger, defaulting to slog.Default() on first
// use if SetLogger was never called.
func GetLogger() *slog.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = slog.Default()
		}
	})
	return logger
}
