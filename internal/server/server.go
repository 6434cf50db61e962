// internal/server/server.go
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/auth"
	"github.com/blobgame/blob/internal/game"
	"github.com/blobgame/blob/internal/protocol"
	"github.com/blobgame/blob/internal/session"
)

// Server accepts peer connections, authenticates them against the session
// registry, and dispatches their packets to the game engine.
type Server struct {
	manager  *game.Manager
	registry *session.Registry
	users    game.UserStore
	log      *logrus.Logger
}

// New wires a server to its engine, registry and identity store, and
// registers itself as the engine's broadcaster.
func New(manager *game.Manager, registry *session.Registry, users game.UserStore) *Server {
	s := &Server{
		manager:  manager,
		registry: registry,
		users:    users,
		log:      logrus.StandardLogger(),
	}
	manager.SetBroadcaster(s)
	return s
}

// GameStateChanged pushes a fresh per-player view to every connected member
// of the game. Disconnected players catch up through reconnection.
func (s *Server) GameStateChanged(code string) {
	for id, view := range s.manager.Views(code) {
		s.registry.PushTo(id, protocol.DataGameData, view)
	}
}

// ListenTCP runs the accept loop until the listener is closed or the
// context ends.
func (s *Server) ListenTCP(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		l.Close()
	}()
	s.log.WithField("addr", addr).Info("server listening")

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.WithError(err).Error("accept failed")
			continue
		}
		go s.serveTCP(ctx, conn)
	}
}

// writeTimeout bounds a single outbound frame write. Broadcasts walk the
// members sequentially, so a peer that stops draining its socket must not
// stall everyone else's push indefinitely.
const writeTimeout = 10 * time.Second

// tcpConn adapts a framed TCP stream to session.Conn. The write mutex keeps
// interleaved frames whole.
type tcpConn struct {
	mu      sync.Mutex
	c       net.Conn
	timeout time.Duration
}

func (t *tcpConn) Send(p protocol.Packet) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	timeout := t.timeout
	if timeout == 0 {
		timeout = writeTimeout
	}
	if err := t.c.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}
	return protocol.WriteFrame(t.c, p)
}

func (t *tcpConn) Close() error { return t.c.Close() }

// serveTCP performs the token handshake and runs the blocking read loop for
// one physical connection.
func (s *Server) serveTCP(ctx context.Context, netConn net.Conn) {
	r := bufio.NewReader(netConn)

	// The first frame is the raw client token, never a packet.
	token, err := protocol.ReadRaw(r)
	if err != nil {
		s.log.WithError(err).WithField("remote", netConn.RemoteAddr()).Warn("handshake failed")
		netConn.Close()
		return
	}

	conn := &tcpConn{c: netConn}
	s.serveSession(ctx, token, conn, func() (protocol.Packet, error) {
		return protocol.ReadFrame(r)
	})
}

// serveSession admits the peer and pumps its packets until the stream dies.
// Inbound packets are fanned out to handler goroutines so a slow handler
// cannot stall the read loop.
func (s *Server) serveSession(ctx context.Context, token []byte, conn session.Conn, recv func() (protocol.Packet, error)) {
	client, err := s.registry.Admit(ctx, auth.HashToken(token), conn)
	if err != nil {
		s.log.WithError(err).Error("failed to admit client")
		conn.Close()
		return
	}
	client.SendData(protocol.DataUUID, client.ID)

	for {
		pkt, err := recv()
		if err != nil {
			if !errors.Is(err, protocol.ErrStreamClosed) {
				s.log.WithError(err).WithField("player", client.ID).Error("read failed")
			}
			break
		}
		go s.dispatch(ctx, client, pkt)
	}

	s.log.WithField("player", client.ID).Warn("lost connection to client")
	conn.Close()
	s.registry.Demote(client, conn)
}
