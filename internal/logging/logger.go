// Package logging builds the process logger from the loaded settings.
package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/dailypush/inkdash/internal/config"
)

// New logs to stdout: tinted text when APP_ENV is dev, JSON lines otherwise
// so the journal can be parsed.
func New(cfg config.Config, version string, appName string) *slog.Logger {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(w io.Writer, cfg config.Config, version, appName string) *slog.Logger {
	var h slog.Handler
	if cfg.AppEnv == "dev" {
		h = tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
			NoColor:    w != io.Writer(os.Stdout),
		})
	} else {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: cfg.LogLevel})
	}
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"device", cfg.DeviceID,
	)
}
