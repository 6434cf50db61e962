// internal/protocol/framing.go
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// HeaderSize is the fixed width of the decimal length prefix that precedes
// every framed payload.
const HeaderSize = 8

// MaxFrameSize caps a single payload. Game views for seven players fit in a
// few kilobytes; anything near the cap is a broken or hostile peer.
const MaxFrameSize = 1 << 20

// ErrStreamClosed is returned when the peer closes the stream, including
// mid-frame. A truncated frame is a closed stream, not a parse error.
var ErrStreamClosed = errors.New("protocol: stream closed")

// WriteFrame serializes the packet and writes the length header followed by
// the payload. net.Conn writes are not atomic for concurrent callers; the
// owning connection must serialize calls.
func WriteFrame(w io.Writer, p Packet) error {
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("protocol: marshal packet: %w", err)
	}
	return WriteRaw(w, payload)
}

// WriteRaw writes an already-encoded payload with its length header.
func WriteRaw(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return fmt.Errorf("protocol: payload of %d bytes exceeds frame cap", len(payload))
	}
	header := fmt.Sprintf("%-*d", HeaderSize, len(payload))
	if _, err := w.Write([]byte(header)); err != nil {
		return fmt.Errorf("protocol: write header: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("protocol: write payload: %w", err)
	}
	return nil
}

// ReadFrame blocks until a full frame is available and returns the decoded
// packet. It returns ErrStreamClosed when the peer closes the stream before
// or during a frame.
func ReadFrame(r io.Reader) (Packet, error) {
	payload, err := ReadRaw(r)
	if err != nil {
		return Packet{}, err
	}
	var p Packet
	if err := json.Unmarshal(payload, &p); err != nil {
		return Packet{}, fmt.Errorf("protocol: decode packet: %w", err)
	}
	return p, nil
}

// ReadRaw reads one length-prefixed payload without interpreting it. The
// session handshake uses this to read the client token before any packets
// flow.
func ReadRaw(r io.Reader) ([]byte, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, closedOr(err, "read header")
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(header)))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("protocol: malformed length header %q", header)
	}
	if n > MaxFrameSize {
		return nil, fmt.Errorf("protocol: frame of %d bytes exceeds frame cap", n)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, closedOr(err, "read payload")
	}
	return payload, nil
}

func closedOr(err error, op string) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrStreamClosed
	}
	return fmt.Errorf("protocol: %s: %w", op, err)
}
