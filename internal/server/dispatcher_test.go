// internal/server/dispatcher_test.go
package server

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blobgame/blob/internal/database"
	"github.com/blobgame/blob/internal/game"
	"github.com/blobgame/blob/internal/models"
	"github.com/blobgame/blob/internal/protocol"
	"github.com/blobgame/blob/internal/session"
)

// fakeConn collects packets pushed to one peer.
type fakeConn struct {
	mu   sync.Mutex
	sent []protocol.Packet
}

func (f *fakeConn) Send(p protocol.Packet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, p)
	return nil
}

func (f *fakeConn) Close() error { return nil }

func (f *fakeConn) last() (protocol.Packet, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return protocol.Packet{}, false
	}
	return f.sent[len(f.sent)-1], true
}

type harness struct {
	t      *testing.T
	s      *Server
	client *session.Client
	conn   *fakeConn
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	users := database.NewMemoryUserStore()
	manager := game.NewManager(users, nil)
	registry := session.NewRegistry(users)
	s := New(manager, registry, users)

	conn := &fakeConn{}
	client, err := registry.Admit(context.Background(), "test-hash", conn)
	require.NoError(t, err)
	return &harness{t: t, s: s, client: client, conn: conn}
}

func (h *harness) request(state protocol.State, data interface{}) (protocol.State, interface{}) {
	h.t.Helper()
	p, err := protocol.NewPacket(state, data)
	require.NoError(h.t, err)
	return h.s.handleRequest(context.Background(), h.client, p)
}

func TestHandleNewGame(t *testing.T) {
	h := newHarness(t)

	state, data := h.request(protocol.ReqNewGame, "")
	require.Equal(t, protocol.RespCreateGameSuccess, state)

	view, ok := data.(*models.GameView)
	require.True(t, ok)
	assert.Equal(t, h.client.ID, view.Host)
	assert.Len(t, view.Code, game.CodeLength)
}

func TestHandleJoinUnknownCode(t *testing.T) {
	h := newHarness(t)

	state, data := h.request(protocol.ReqJoinGame, "QQQQ")
	assert.Equal(t, protocol.RespJoinGameFailed, state)
	assert.Contains(t, data.(string), "does not exist")
}

func TestHandleGameDataWithoutSeat(t *testing.T) {
	h := newHarness(t)

	state, _ := h.request(protocol.ReqGameData, "")
	assert.Equal(t, protocol.RespNotInGame, state)
}

func TestHandleUUID(t *testing.T) {
	h := newHarness(t)

	state, data := h.request(protocol.ReqUUID, "")
	assert.Equal(t, protocol.RespUUID, state)
	assert.Equal(t, h.client.ID, data)
}

func TestHandlePlaceCardBeforeStart(t *testing.T) {
	h := newHarness(t)
	_, _ = h.request(protocol.ReqNewGame, "")

	state, _ := h.request(protocol.ReqPlaceCard, models.Card{Suit: models.SuitHearts, Value: 2})
	assert.Equal(t, protocol.RespGameNotStarted, state)
}

func TestHandlePredictBeforeStart(t *testing.T) {
	h := newHarness(t)
	_, _ = h.request(protocol.ReqNewGame, "")

	state, _ := h.request(protocol.ReqPredict, 2)
	assert.Equal(t, protocol.RespGameNotStarted, state)
}

func TestHandleStartRejectsMalformedParams(t *testing.T) {
	h := newHarness(t)
	_, _ = h.request(protocol.ReqNewGame, "")

	p := protocol.Packet{State: protocol.ReqStartGame, Data: json.RawMessage(`"not an object"`)}
	state, data := h.s.handleRequest(context.Background(), h.client, p)
	assert.Equal(t, protocol.RespStartGameFailed, state)
	assert.Equal(t, "Invalid data.", data)
}

func TestHandleStartNotHost(t *testing.T) {
	h := newHarness(t)
	_, _ = h.request(protocol.ReqNewGame, "")

	other, err := h.s.registry.Admit(context.Background(), "other-hash", &fakeConn{})
	require.NoError(t, err)

	// Seat the second client in the first client's game.
	codeState, codeData := h.request(protocol.ReqGameData, "")
	require.Equal(t, protocol.RespGameData, codeState)
	code := codeData.(*models.GameView).Code

	p, err := protocol.NewPacket(protocol.ReqJoinGame, code)
	require.NoError(t, err)
	state, _ := h.s.handleRequest(context.Background(), other, p)
	require.Equal(t, protocol.RespJoinGameSuccess, state)

	p, err = protocol.NewPacket(protocol.ReqStartGame, protocol.StartParams{StartingCards: 1, TrumpOrder: "H"})
	require.NoError(t, err)
	state, data := h.s.handleRequest(context.Background(), other, p)
	assert.Equal(t, protocol.RespStartGameFailed, state)
	assert.Contains(t, data.(string), "host")
}

func TestHandleSetName(t *testing.T) {
	h := newHarness(t)

	state, _ := h.request(protocol.ReqSetName, "alice")
	assert.Equal(t, protocol.RespSuccess, state)

	other, err := h.s.registry.Admit(context.Background(), "other-hash", &fakeConn{})
	require.NoError(t, err)
	p, err := protocol.NewPacket(protocol.ReqSetName, "alice")
	require.NoError(t, err)
	otherState, reason := h.s.handleRequest(context.Background(), other, p)
	assert.Equal(t, protocol.RespSetNameFailed, otherState)
	assert.Contains(t, reason.(string), "taken")
}

func TestHandleLeaveWithoutSeat(t *testing.T) {
	h := newHarness(t)

	state, _ := h.request(protocol.ReqLeaveGame, "")
	assert.Equal(t, protocol.RespNotInGame, state)
}

func TestHandleUnknownRequest(t *testing.T) {
	h := newHarness(t)

	state, _ := h.request(protocol.State("RQ99"), "")
	assert.Equal(t, protocol.RespInvalidRequest, state)
}

func TestDispatchRespondsToRequests(t *testing.T) {
	h := newHarness(t)
	p, err := protocol.NewPacket(protocol.ReqUUID, "")
	require.NoError(t, err)

	h.s.dispatch(context.Background(), h.client, p)
	last, ok := h.conn.last()
	require.True(t, ok)
	assert.Equal(t, protocol.RespUUID, last.State)

	var id string
	require.NoError(t, json.Unmarshal(last.Data, &id))
	assert.Equal(t, h.client.ID.String(), id)
}

func TestDispatchIgnoresDataPackets(t *testing.T) {
	h := newHarness(t)
	p, err := protocol.NewPacket(protocol.DataGameData, "")
	require.NoError(t, err)

	h.s.dispatch(context.Background(), h.client, p)
	_, ok := h.conn.last()
	assert.False(t, ok, "data packets from a client get no response")
}
