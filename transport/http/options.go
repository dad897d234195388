package http

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kochabx/authsession/core/tag"
)

type Options struct {
	Metrics MetricsOption
	Health  HealthOption
}

// MetricsOption serves Registry on Path.
type MetricsOption struct {
	Enabled  bool                 `json:"enabled" mapstructure:"enabled"`
	Path     string               `json:"path" mapstructure:"path" default:"/metrics"`
	Registry *prometheus.Registry `json:"-" mapstructure:"-"`
}

func (m *MetricsOption) init() error {
	return tag.ApplyDefaults(m)
}

// HealthOption serves a liveness check on Path. Check may be nil.
type HealthOption struct {
	Enabled bool                            `json:"enabled" mapstructure:"enabled"`
	Path    string                          `json:"path" mapstructure:"path" default:"/health"`
	Check   func(ctx context.Context) error `json:"-" mapstructure:"-"`
}

func (h *HealthOption) init() error {
	return tag.ApplyDefaults(h)
}
