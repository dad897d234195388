// Package middleware holds the gin middleware shared by the admin server
// and the mock backend.
package middleware

import (
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kochabx/authsession/log"
)

// LoggerConfig configures Logger.
type LoggerConfig struct {
	// Header logs request headers. Authorization values are masked by the
	// logger's desensitize hook.
	Header    bool
	SkipPaths []string
	Filter    func(c *gin.Context) bool
	Logger    *log.Logger
}

func DefaultLoggerConfig() LoggerConfig {
	return LoggerConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// Logger logs one line per request.
func Logger(cfg LoggerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if shouldSkip(c, cfg) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		logger := cfg.Logger
		if logger == nil {
			logger = log.G()
		}
		event := logger.Info().
			Int("status", c.Writer.Status()).
			Str("method", c.Request.Method).
			Str("uri", c.Request.RequestURI).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if cfg.Header {
			event = event.Any("headers", c.Request.Header)
		}
		if rid := c.Request.Header.Get("X-Request-ID"); rid != "" {
			event = event.Str("request_id", rid)
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.ByType(gin.ErrorTypePrivate).String())
		}
		event.Send()
	}
}

func shouldSkip(c *gin.Context, cfg LoggerConfig) bool {
	if cfg.Filter != nil {
		return cfg.Filter(c)
	}
	return slices.Contains(cfg.SkipPaths, c.Request.URL.Path)
}
