package transport

import (
	"net"
	"time"
)

// Connection is one pooled socket to a single endpoint, tracked for age
// (since dial) and idle time (since last return to the pool).
type Connection struct {
	net.Conn

	endpoint   string
	createdAt  time.Time
	lastUsedAt time.Time
}

// Age returns how long ago this connection was dialed.
func (c *Connection) Age() time.Duration { return time.Since(c.createdAt) }

// Idle returns how long this connection has sat unused in the pool. For a
// connection that has never been returned it is the time since dial.
func (c *Connection) Idle() time.Duration { return time.Since(c.lastUsedAt) }

// touch marks the connection as just having been returned to the pool.
func (c *Connection) touch() { c.lastUsedAt = time.Now() }
