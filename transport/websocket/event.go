package websocket

import "time"

// EventType names a client event.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventMessage      EventType = "message"
	EventReconnecting EventType = "reconnecting"
	EventError        EventType = "error"
)

// Event is passed to handlers. Data is set for EventMessage; Attempt and
// Delay for EventReconnecting.
type Event struct {
	Type    EventType
	Data    []byte
	Attempt int
	Delay   time.Duration
	Err     error
	At      time.Time
}

// EventHandler runs on the client's read goroutine and must not block.
type EventHandler func(Event)
