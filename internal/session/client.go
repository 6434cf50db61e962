// internal/session/client.go
package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/protocol"
)

// Conn abstracts one physical peer connection. Implementations must make
// Send safe for concurrent callers.
type Conn interface {
	Send(p protocol.Packet) error
	Close() error
}

// Client is the server's view of one peer identity. It survives the
// physical connection: on disconnect the Client moves to the registry's
// disconnected set and is revived when the same token hash returns.
// Identities are never discarded while the process runs, so a returning
// token always reclaims its player; the parked request-loop goroutine per
// identity is the cost of that rule.
type Client struct {
	Hash string
	ID   uuid.UUID

	mu   sync.Mutex
	conn Conn

	// Outbound requests queue here so at most one request awaits the peer's
	// response at any time. Broadcasts and responses bypass the queue.
	requests  chan protocol.Packet
	responded chan struct{}
	done      chan struct{}
	once      sync.Once
}

// NewClient wraps a live connection with a fresh request queue.
func NewClient(hash string, id uuid.UUID, conn Conn) *Client {
	c := &Client{
		Hash:      hash,
		ID:        id,
		conn:      conn,
		requests:  make(chan protocol.Packet, 16),
		responded: make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	go c.loopRequests()
	return c
}

// Send pushes a packet to the peer immediately. Used for responses and data
// packets, which need no pacing.
func (c *Client) Send(p protocol.Packet) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return protocol.ErrStreamClosed
	}
	return conn.Send(p)
}

// SendData marshals and pushes a data packet, logging failures. Data
// packets are fire-and-forget; a dead connection surfaces through the read
// loop, not here.
func (c *Client) SendData(state protocol.State, data interface{}) {
	p, err := protocol.NewPacket(state, data)
	if err != nil {
		logrus.WithError(err).WithField("state", state).Error("failed to encode data packet")
		return
	}
	if err := c.Send(p); err != nil {
		logrus.WithError(err).WithField("player", c.ID).Debug("data packet not delivered")
	}
}

// Request enqueues an outbound request. It is sent once the peer has
// responded to any previously sent request.
func (c *Client) Request(p protocol.Packet) {
	select {
	case c.requests <- p:
	case <-c.done:
	}
}

// MarkResponded records that the peer answered the outstanding request,
// releasing the next queued one. Also invoked on reconnect: a returning
// peer is treated as caught up, its last outstanding request presumed
// abandoned.
func (c *Client) MarkResponded() {
	select {
	case c.responded <- struct{}{}:
	default:
	}
}

// loopRequests serializes outbound requests: send one, wait for the
// response signal, send the next.
func (c *Client) loopRequests() {
	for {
		select {
		case <-c.done:
			return
		case p := <-c.requests:
			if err := c.Send(p); err != nil {
				logrus.WithError(err).WithField("player", c.ID).Debug("queued request not delivered")
			}
			select {
			case <-c.responded:
			case <-c.done:
				return
			}
		}
	}
}

// attach swaps in a new live connection, closing any previous one.
func (c *Client) attach(conn Conn) {
	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.mu.Unlock()
	if old != nil && old != conn {
		old.Close()
	}
}

// detach drops the connection if it is still the current one. Returns
// whether the client is now connectionless.
func (c *Client) detach(conn Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn || conn == nil {
		c.conn = nil
		return true
	}
	return false
}

// shutdown stops the request loop. Only for discarding an identity
// entirely, never on mere disconnect. The registry keeps identities for the
// process lifetime, so nothing in the serving path calls this; tests use it
// to reap their clients.
func (c *Client) shutdown() {
	c.once.Do(func() { close(c.done) })
}
