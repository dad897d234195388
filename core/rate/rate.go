// Package rate bounds how often an action may happen inside a rolling window.
package rate

import (
	"context"
	"time"
)

// Limiter records attempts in a sliding window.
type Limiter interface {
	// Allow records an attempt at now when fewer than the limit happened in
	// the preceding window. When denied, retryAt is the moment the oldest
	// attempt leaves the window.
	Allow(ctx context.Context, now time.Time) (allowed bool, retryAt time.Time, err error)
	// Reset forgets all attempts.
	Reset(ctx context.Context) error
}
