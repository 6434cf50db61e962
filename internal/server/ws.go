// internal/server/ws.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/blobgame/blob/internal/protocol"
)

// wsConn adapts a WebSocket connection to session.Conn. WebSocket frames
// already delimit messages, so packets travel as bare JSON without the
// length prefix used on raw TCP.
type wsConn struct {
	ctx  context.Context
	conn *websocket.Conn
}

func (w *wsConn) Send(p protocol.Packet) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal packet: %w", err)
	}
	ctx, cancel := context.WithTimeout(w.ctx, 10*time.Second)
	defer cancel()
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}

// WSHandler upgrades HTTP connections and speaks the packet protocol over
// WebSocket messages. The first message is the raw client token, exactly as
// in the TCP handshake.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			s.log.WithError(err).Warn("websocket accept failed")
			return
		}
		ctx := r.Context()

		_, token, err := c.Read(ctx)
		if err != nil {
			s.log.WithError(err).WithField("remote", r.RemoteAddr).Warn("handshake failed")
			c.Close(websocket.StatusPolicyViolation, "token expected")
			return
		}

		conn := &wsConn{ctx: context.WithoutCancel(ctx), conn: c}
		s.serveSession(ctx, token, conn, func() (protocol.Packet, error) {
			_, data, err := c.Read(ctx)
			if err != nil {
				// Any websocket read failure ends the stream.
				return protocol.Packet{}, protocol.ErrStreamClosed
			}
			var p protocol.Packet
			if err := json.Unmarshal(data, &p); err != nil {
				return protocol.Packet{}, fmt.Errorf("decode packet: %w", err)
			}
			return p, nil
		})
	}
}

// ListenWS serves the WebSocket endpoint until the context ends.
func (s *Server) ListenWS(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.WSHandler())

	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  0, // connections are long-lived
		WriteTimeout: 0,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	s.log.WithField("addr", addr).Info("websocket listener up")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
