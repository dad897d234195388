package rate

import (
	"context"
	"sync"
	"time"
)

// Window is an in-process sliding window limiter.
type Window struct {
	mu       sync.Mutex
	window   time.Duration
	limit    int
	attempts []time.Time
}

// NewWindow allows limit attempts per window.
func NewWindow(limit int, window time.Duration) *Window {
	return &Window{window: window, limit: limit}
}

func (w *Window) Allow(_ context.Context, now time.Time) (bool, time.Time, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.evict(now)
	if len(w.attempts) >= w.limit {
		return false, w.attempts[0].Add(w.window), nil
	}
	w.attempts = append(w.attempts, now)
	return true, time.Time{}, nil
}

func (w *Window) Reset(context.Context) error {
	w.mu.Lock()
	w.attempts = w.attempts[:0]
	w.mu.Unlock()
	return nil
}

// Count returns the attempts still inside the window at now.
func (w *Window) Count(now time.Time) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.evict(now)
	return len(w.attempts)
}

func (w *Window) evict(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.attempts) && !w.attempts[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.attempts = append(w.attempts[:0], w.attempts[i:]...)
	}
}
