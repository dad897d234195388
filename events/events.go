// Package events publishes session lifecycle events (login, logout,
// refresh outcomes, forced logouts) to a log, kafka or nowhere.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type names a lifecycle event.
type Type string

const (
	TypeLogin         Type = "login"
	TypeLogout        Type = "logout"
	TypeRefreshed     Type = "refreshed"
	TypeRefreshFailed Type = "refresh_failed"
	TypeCooldown      Type = "refresh_cooldown"
	TypeForcedLogout  Type = "forced_logout"
)

// Event is one lifecycle transition. It never carries token values.
type Event struct {
	ID       string    `json:"id"`
	Type     Type      `json:"type"`
	Username string    `json:"username,omitempty"`
	Reason   string    `json:"reason,omitempty"`
	At       time.Time `json:"at"`
}

// New stamps an event with an id and the current time.
func New(t Type, username, reason string) Event {
	return Event{ID: uuid.NewString(), Type: t, Username: username, Reason: reason, At: time.Now()}
}

// Publisher delivers events. Delivery is best effort and never fails the
// session operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// PublisherFunc adapts a function.
type PublisherFunc func(ctx context.Context, e Event)

func (f PublisherFunc) Publish(ctx context.Context, e Event) { f(ctx, e) }

// Noop drops events.
type Noop struct{}

func (Noop) Publish(context.Context, Event) {}

// Multi fans out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types returns the published types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
