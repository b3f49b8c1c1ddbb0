package registry

import (
	"sync"
	"time"
)

// Connection holds the server-side identity and outbound queue for one live
// transport connection. The queue is the only way other goroutines reach the
// wire; the owning session's write loop is the single reader.
type Connection struct {
	// ID is assigned by the Registry at registration time and never changes.
	ID string
	// DisplayName is the caller-supplied or generated name for this connection.
	DisplayName string
	// JoinedAt records when the connection was registered.
	JoinedAt time.Time

	send   chan []byte
	mu     sync.RWMutex
	closed bool
}

// NewConnection creates a connection with a bounded outbound queue.
// The ID is assigned when the connection is registered.
func NewConnection(displayName string, queueSize int) *Connection {
	return &Connection{
		DisplayName: displayName,
		send:        make(chan []byte, queueSize),
	}
}

// TrySend enqueues a payload without blocking. It reports false when the
// queue is full or already closed; the caller decides what a refusal means.
func (c *Connection) TrySend(payload []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// CloseSend closes the outbound queue. Safe to call more than once; the
// session's write loop drains whatever is already queued and then exits.
func (c *Connection) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// Outbound returns the queue for the session's write loop to drain.
func (c *Connection) Outbound() <-chan []byte {
	return c.send
}
