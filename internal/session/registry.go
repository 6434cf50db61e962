// internal/session/registry.go
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/game"
	"github.com/blobgame/blob/internal/protocol"
)

// Registry maps hashed client tokens to live clients. Identities persist
// across physical connections: losing a connection demotes the entry to the
// disconnected set without touching game membership, and the same hash
// reclaims it on reconnect.
type Registry struct {
	mu           sync.Mutex
	connected    map[string]*Client
	disconnected map[string]*Client

	users game.UserStore
	log   *logrus.Logger
}

// NewRegistry builds a registry backed by the identity store.
func NewRegistry(users game.UserStore) *Registry {
	return &Registry{
		connected:    make(map[string]*Client),
		disconnected: make(map[string]*Client),
		users:        users,
		log:          logrus.StandardLogger(),
	}
}

// Admit resolves a token hash to a client and binds the new connection.
//
// A previously seen hash revives the existing client, keeping its player
// UUID and in-progress game membership; the pending-response flag is marked
// satisfied since the peer's last outstanding request is presumed
// abandoned. A concurrent connection under the same hash resolves to the
// newest connection; the loser is closed. A fresh hash mints and persists a
// new identity.
func (r *Registry) Admit(ctx context.Context, tokenHash string, conn Conn) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.disconnected[tokenHash]; ok {
		delete(r.disconnected, tokenHash)
		r.connected[tokenHash] = c
		c.attach(conn)
		c.MarkResponded()
		r.log.WithField("player", c.ID).Info("client reconnected")
		return c, nil
	}
	if c, ok := r.connected[tokenHash]; ok {
		// Same identity on a second socket: the new connection wins.
		c.attach(conn)
		c.MarkResponded()
		r.log.WithField("player", c.ID).Warn("client superseded its own connection")
		return c, nil
	}

	id, err := r.users.EnsureUser(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	c := NewClient(tokenHash, id, conn)
	r.connected[tokenHash] = c
	r.log.WithField("player", c.ID).Info("client connected")
	return c, nil
}

// Demote moves a client whose connection died to the disconnected set. The
// player stays seated in their game; only the wire is gone. A connection
// that has already been superseded by a reconnect is ignored.
func (r *Registry) Demote(c *Client, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.detach(conn) {
		return
	}
	if cur, ok := r.connected[c.Hash]; ok && cur == c {
		delete(r.connected, c.Hash)
		r.disconnected[c.Hash] = c
		r.log.WithField("player", c.ID).Warn("client disconnected")
	}
}

// ByPlayer finds the connected client for a player ID, if any.
func (r *Registry) ByPlayer(id uuid.UUID) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.connected {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// PushTo sends a data packet to a player if they are connected.
func (r *Registry) PushTo(id uuid.UUID, state protocol.State, data interface{}) {
	if c, ok := r.ByPlayer(id); ok {
		c.SendData(state, data)
	}
}
