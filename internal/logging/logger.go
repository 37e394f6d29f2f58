// Package logging builds the slog logger shared by the dashboard service,
// the session sweeper and the HTTP handlers.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New returns the logger selected by APP_ENV. In dev it writes colourised
// lines with source positions so session steps are easy to follow locally.
// In prod it writes JSON tagged with the app name and environment, and every
// session event carries its session id as an attribute.
func New(w io.Writer, appEnv string, level slog.Level, appName string) *slog.Logger {
	if appEnv == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(h).With(
		"app", appName,
		"env", appEnv,
	)
}
