package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/devconnect/realtime/pkg/model"
)

// Connection is one live client link, bound to a user identity at
// authentication and immutable afterwards. The registry owns its lifecycle;
// everything else references it only through delivery.
type Connection struct {
	ID          string
	User        model.UserIdentity
	ConnectedAt time.Time

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConnection(user model.UserIdentity, buffer int) *Connection {
	return &Connection{
		ID:          uuid.NewString(),
		User:        user,
		ConnectedAt: time.Now(),
		send:        make(chan []byte, buffer),
		done:        make(chan struct{}),
	}
}

// Deliver queues a payload for the transport pump. Delivery is best-effort:
// a closed connection is skipped, and a connection whose buffer is full is
// closed rather than allowed to stall the sender.
func (c *Connection) Deliver(payload []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- payload:
		return true
	case <-c.done:
		return false
	default:
		c.Close()
		return false
	}
}

// Outbound is drained by the transport's write pump.
func (c *Connection) Outbound() <-chan []byte { return c.send }

// Done is closed once the connection is terminally closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Close marks the connection dead. Safe to call more than once and
// concurrently with Deliver.
func (c *Connection) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}
