package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// LoggerConfig tunes the access log.
type LoggerConfig struct {
	// SkipPaths are not logged unless the response is a 5xx. Intended for
	// health and metrics scrapes.
	SkipPaths []string
}

// Logger logs every request. See LoggerWithConfig.
func Logger(log *slog.Logger) gin.HandlerFunc {
	return LoggerWithConfig(log, LoggerConfig{})
}

// LoggerWithConfig returns an access-log middleware writing one "request"
// record per request after the handler chain. The record is logged with the
// request context, so request_id and client_ip context attributes are kept.
func LoggerWithConfig(log *slog.Logger, cfg LoggerConfig) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		if p != "" {
			skip[p] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := accessLevel(status)
		if _, ok := skip[c.Request.URL.Path]; ok && level < slog.LevelError {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := append(make([]slog.Attr, 0, 8),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("client_ip", GetClientAddr(c).IP),
		)
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("errors", c.Errors.String()))
		}
		log.LogAttrs(c.Request.Context(), level, "request", attrs...)
	}
}

// accessLevel is Error for 5xx, Warn for 4xx and Info otherwise.
func accessLevel(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
