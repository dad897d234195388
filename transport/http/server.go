// Package http is the local admin server: session status, health and
// prometheus metrics for a long-running session holder.
package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kochabx/authsession/log"
	"github.com/kochabx/authsession/transport"
	"github.com/kochabx/authsession/transport/http/response"
)

var _ transport.Server = (*Server)(nil)

const (
	defaultName = "admin"
	defaultAddr = "127.0.0.1:9464"
)

// Meta is the metadata of the server.
type Meta struct {
	Name string
}

type Server struct {
	meta    Meta
	options Options
	server  *http.Server
}

type Option func(*Server)

func WithMeta(meta Meta) Option {
	return func(s *Server) {
		s.meta = meta
	}
}

func WithMetricsOptions(metrics MetricsOption) Option {
	return func(s *Server) {
		if err := metrics.init(); err != nil {
			log.Error().Err(err).Send()
			return
		}
		s.options.Metrics = metrics
	}
}

func WithHealthOptions(health HealthOption) Option {
	return func(s *Server) {
		if err := health.init(); err != nil {
			log.Error().Err(err).Send()
			return
		}
		s.options.Health = health
	}
}

func NewServer(addr string, handler http.Handler, opts ...Option) *Server {
	s := &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: handler,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	additionalHandlers(s)

	return s
}

// Handler returns the root handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Run() error {
	if s.meta.Name == "" {
		s.meta.Name = defaultName
	}

	if ok := transport.ValidateAddress(s.server.Addr); !ok {
		log.Warn().Msgf("invalid address %s, using default address: %s", s.server.Addr, defaultAddr)
		s.server.Addr = defaultAddr
	}
	log.Info().Msgf("%s server listening on %s", s.meta.Name, s.server.Addr)

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func additionalHandlers(s *Server) {
	if r, ok := s.server.Handler.(*gin.Engine); ok {
		handleMetrics(s, r)
		handleHealth(s, r)
	}
}

func handleMetrics(s *Server, r *gin.Engine) {
	m := s.options.Metrics
	if !m.Enabled || m.Registry == nil {
		return
	}
	r.GET(m.Path, gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})))
}

func handleHealth(s *Server, r *gin.Engine) {
	h := s.options.Health
	if !h.Enabled {
		return
	}
	r.GET(h.Path, func(c *gin.Context) {
		if h.Check != nil {
			if err := h.Check(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		response.GinJSON(c, gin.H{"status": "ok"})
	})
}
