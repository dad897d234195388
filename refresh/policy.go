package refresh

import "time"

// Policy holds the refresh timing constants. The defaults match a backend
// issuing 60 minute access tokens.
type Policy struct {
	// ProactiveThreshold: refresh ahead of time only when less than this
	// much lifetime is left.
	ProactiveThreshold time.Duration `json:"proactive_threshold" mapstructure:"proactive_threshold" default:"2m" validate:"gte=0"`
	// MinInterval and MinRemaining: skip the network when the last refresh
	// is younger than MinInterval and the token still has MinRemaining.
	MinInterval  time.Duration `json:"min_interval" mapstructure:"min_interval" default:"30s" validate:"gte=0"`
	MinRemaining time.Duration `json:"min_remaining" mapstructure:"min_remaining" default:"5m" validate:"gte=0"`
	// MaxAttempts network refreshes are allowed per AttemptWindow.
	MaxAttempts   int           `json:"max_attempts" mapstructure:"max_attempts" default:"3" validate:"gt=0"`
	AttemptWindow time.Duration `json:"attempt_window" mapstructure:"attempt_window" default:"5m" validate:"gt=0"`
	// Timeout bounds one refresh call.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout" default:"15s" validate:"gt=0"`
}

// DefaultPolicy returns 2m / 30s / 5m / 3 per 5m / 15s.
func DefaultPolicy() Policy {
	return Policy{
		ProactiveThreshold: 2 * time.Minute,
		MinInterval:        30 * time.Second,
		MinRemaining:       5 * time.Minute,
		MaxAttempts:        3,
		AttemptWindow:      5 * time.Minute,
		Timeout:            15 * time.Second,
	}
}
