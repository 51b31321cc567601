package telemetry

import (
	"log/slog"
	"os"
	"strings"
)

// parseLevel maps a configuration string to a slog level. Unknown or empty
// values fall back to info so a typo in config never silences logging.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogger installs the global slog default logger from the logging
// section of the application configuration.
//
// format "json" selects JSONHandler (machine readable, for production);
// anything else selects TextHandler for local development. Source locations
// are attached only at debug level.
//
// Installing the logger as the default means the rest of the codebase calls
// slog.Info/Warn/Error directly without carrying a *slog.Logger around.
func SetupLogger(format, level string) {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
	slog.Info("logger initialised", "format", format, "level", lvl.String())
}
