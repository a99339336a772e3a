// Package logging builds the slog loggers used across nutrilog.
//
// Everything logs to stderr by default: stdout carries CLI JSON and the
// MCP stdio protocol and must stay clean.
package logging

import (
	"crypto/rand"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Config holds logger settings.
type Config struct {
	Level     string    // debug, info, warn, error
	Format    string    // text, json
	Output    io.Writer // defaults to os.Stderr
	Component string
}

// ParseLevel maps a level name to a slog.Level. Unknown names mean info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// New creates a logger from cfg.
func New(cfg Config) *slog.Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	l := slog.New(handler)
	if cfg.Component != "" {
		l = l.With("component", cfg.Component)
	}
	return l
}

// Discard returns a logger that drops everything. Used as the nil-safe default.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithComponent tags l with a component name. A nil l yields a discarding logger.
func WithComponent(l *slog.Logger, component string) *slog.Logger {
	if l == nil {
		l = Discard()
	}
	return l.With("component", component)
}

// HTTPMiddleware logs one line per request with status and duration.
func HTTPMiddleware(l *slog.Logger, next http.Handler) http.Handler {
	if l == nil {
		l = Discard()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = newRequestID()
		}
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		args := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status_code", rw.statusCode,
			"bytes", rw.size,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case rw.statusCode >= 500:
			l.Error("http request", args...)
		case rw.statusCode >= 400:
			l.Warn("http request", args...)
		default:
			l.Info("http request", args...)
		}
	})
}

// responseWriter captures the status code and size written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.size += n
	return n, err
}

func newRequestID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
