package mockbackend

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// socket is one notification connection. gorilla allows a single writer,
// so writes go through mu.
type socket struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *socket) write(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteMessage(websocket.TextMessage, raw)
}

func (b *Backend) handleSocket(c *gin.Context) {
	claims, err := b.bearer(c)
	if err != nil || b.revoked(c, claims) {
		tokenError(c, detailStale)
		return
	}
	conn, err := b.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	s := &socket{conn: conn}
	b.mu.Lock()
	b.sockets[s] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.sockets, s)
		b.mu.Unlock()
		conn.Close()
	}()

	if err := s.write(gin.H{"type": "welcome", "username": claims.Username}); err != nil {
		return
	}
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Notify sends v to every connected socket and returns how many got it.
func (b *Backend) Notify(v any) int {
	b.mu.Lock()
	targets := make([]*socket, 0, len(b.sockets))
	for s := range b.sockets {
		targets = append(targets, s)
	}
	b.mu.Unlock()

	sent := 0
	for _, s := range targets {
		if s.write(v) == nil {
			sent++
		}
	}
	return sent
}

// Sockets returns the number of open notification connections.
func (b *Backend) Sockets() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sockets)
}
