package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/log/desensitize"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestLoggerMasksAuthorization(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, log.WithDesensitize(desensitize.NewHook(desensitize.BuiltinRules()...)))

	r := gin.New()
	r.Use(Logger(LoggerConfig{Header: true, Logger: logger}))
	r.GET("/api/permits/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/api/permits/", nil)
	req.Header.Set("Authorization", "Bearer secret-access-token")
	req.Header.Set("X-Request-ID", "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, `"status":204`)
	assert.Contains(t, out, `"request_id":"rid-1"`)
	assert.NotContains(t, out, "secret-access-token")
}

func TestLoggerSkipsPaths(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Logger(LoggerConfig{SkipPaths: []string{"/health"}, Logger: log.New(&buf)}))
	r.GET("/health", func(c *gin.Context) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Empty(t, buf.String())
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(Recovery(log.New(&buf)))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}
