// Package transport implements the HTTP Request Engine: a per-endpoint
// connection pool with TTL/keep-alive/FIFO-LIFO policies, retry budget
// enforcement, response header classification, and request/response body
// compression.
package transport

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/chxio/chgo/errs"
)

// ReuseStrategy selects which idle connection a checkout hands out.
type ReuseStrategy uint8

const (
	// ReuseFIFO hands out the longest-idle connection first, spreading
	// load evenly across many backends.
	ReuseFIFO ReuseStrategy = iota
	// ReuseLIFO hands out the most-recently-idle connection first,
	// favoring cache locality (OS socket buffers, TLS session resumption)
	// on long-lived keep-alive connections.
	ReuseLIFO
)

// DialFunc opens a fresh socket to an endpoint. Implementations may wrap
// net.Dialer.DialContext or crypto/tls.DialWithDialer depending on the
// endpoint's scheme and the client's TLS configuration.
type DialFunc func(ctx context.Context, endpoint string) (net.Conn, error)

// PoolConfig holds the per-endpoint connection pool policy.
type PoolConfig struct {
	MaxConnections           int
	TTL                      time.Duration
	KeepAlive                time.Duration
	ConnectionRequestTimeout time.Duration
	Reuse                    ReuseStrategy
	Dial                     DialFunc
}

// Pool is an ordered container of idle Connection Records for a single
// endpoint, capped at MaxConnections simultaneous open sockets (idle plus
// checked-out).
type Pool struct {
	endpoint string
	cfg      PoolConfig

	mu   sync.Mutex
	idle []*Connection

	tokens chan struct{}
	signal chan struct{}
}

// NewPool returns a Pool for endpoint governed by cfg.
func NewPool(endpoint string, cfg PoolConfig) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = 1
	}

	return &Pool{
		endpoint: endpoint,
		cfg:      cfg,
		tokens:   make(chan struct{}, cfg.MaxConnections),
		signal:   make(chan struct{}, 1),
	}
}

// Checkout returns an idle connection if one satisfies the TTL/keep-alive
// policy, or dials a fresh one if the pool has spare capacity. When the
// pool is exhausted it queues, woken either by a freed dial slot or by a
// connection returned to the idle list, up to ConnectionRequestTimeout
// measured from the start of the call.
func (p *Pool) Checkout(ctx context.Context) (*Connection, error) {
	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectionRequestTimeout)
	defer cancel()

	for {
		if c, ok := p.popIdle(); ok {
			if p.isStale(c) {
				p.closeAndRelease(c)

				continue
			}

			return c, nil
		}

		select {
		case p.tokens <- struct{}{}:
			c, err := p.dial(ctx)
			if err != nil {
				<-p.tokens

				return nil, err
			}

			return c, nil
		case <-p.signal:
			// A connection came back; loop around and race for it.
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			return nil, &errs.TransportError{Cause: errs.FaultConnectionRequestTimeout, Msg: "timed out waiting for a pool slot"}
		}
	}
}

// ping wakes one queued Checkout, if any. The channel holds one pending
// wakeup at most; a woken waiter that finds more idle connections pings
// again from popIdle, so chained wakeups drain a burst of returns.
func (p *Pool) ping() {
	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *Pool) dial(ctx context.Context) (*Connection, error) {
	conn, err := p.cfg.Dial(ctx, p.endpoint)
	if err != nil {
		return nil, &errs.TransportError{Cause: errs.FaultNoResponse, Msg: err.Error()}
	}

	now := time.Now()

	return &Connection{Conn: conn, endpoint: p.endpoint, createdAt: now, lastUsedAt: now}, nil
}

// Return hands c back to the pool, closing it instead if it has aged past
// TTL. Keep-alive is deliberately not checked here: lastUsedAt reflects
// the previous return, so a long in-flight request would look idle. A
// returned connection keeps holding its token until it is closed, so the
// pool's open-socket count (idle + in-use) never exceeds MaxConnections.
func (p *Pool) Return(c *Connection) {
	if p.expiredTTL(c) {
		p.closeAndRelease(c)

		return
	}

	c.touch()

	p.mu.Lock()
	p.idle = append(p.idle, c)
	p.mu.Unlock()

	p.ping()
}

// Discard closes c without returning it to the idle list, releasing its
// token. Callers use this for connections that can't be safely reused
// (e.g. one read mid-stream was abandoned by cancellation).
func (p *Pool) Discard(c *Connection) {
	p.closeAndRelease(c)
}

func (p *Pool) closeAndRelease(c *Connection) {
	_ = c.Close()
	<-p.tokens
}

func (p *Pool) expiredTTL(c *Connection) bool {
	return p.cfg.TTL > 0 && c.Age() >= p.cfg.TTL
}

func (p *Pool) isStale(c *Connection) bool {
	if p.expiredTTL(c) {
		return true
	}

	return p.cfg.KeepAlive > 0 && c.Idle() >= p.cfg.KeepAlive
}

func (p *Pool) popIdle() (*Connection, bool) {
	p.mu.Lock()

	if len(p.idle) == 0 {
		p.mu.Unlock()

		return nil, false
	}

	var c *Connection

	switch p.cfg.Reuse {
	case ReuseLIFO:
		c = p.idle[len(p.idle)-1]
		p.idle = p.idle[:len(p.idle)-1]
	default: // ReuseFIFO
		c = p.idle[0]
		p.idle = p.idle[1:]
	}

	remaining := len(p.idle)
	p.mu.Unlock()

	if remaining > 0 {
		p.ping()
	}

	return c, true
}

// Close closes every idle connection and releases their tokens. Checked
// out connections are unaffected; callers must Discard them individually.
func (p *Pool) Close() {
	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, c := range idle {
		p.closeAndRelease(c)
	}
}
