// internal/game/manager.go
package game

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/models"
	"github.com/blobgame/blob/internal/protocol"
)

// CodeLength is the length of a join code.
const CodeLength = 4

// UserStore is the persistence collaborator for player identities. The
// engine never touches credentials; it stores only a one-way hash of the
// client token and the player's current game membership.
type UserStore interface {
	// EnsureUser finds or mints the player identity for a token hash.
	EnsureUser(ctx context.Context, tokenHash string) (uuid.UUID, error)
	// DisplayName resolves a player's display name, in guest form when the
	// account is a guest.
	DisplayName(ctx context.Context, playerID uuid.UUID) (string, error)
	// SetName updates a player's username. Returns ErrNameTaken on conflict.
	SetName(ctx context.Context, playerID uuid.UUID, name string) error
	// SetMembership persists the player's current game code ("" = none).
	SetMembership(ctx context.Context, playerID uuid.UUID, code string) error
	// Membership returns the player's current game code, "" when not seated.
	Membership(ctx context.Context, playerID uuid.UUID) (string, error)
}

// Broadcaster pushes fresh per-player views whenever a game's state changes.
type Broadcaster interface {
	GameStateChanged(code string)
}

// ActionLogger records game-affecting actions for offline consumers. A nil
// logger disables recording.
type ActionLogger interface {
	Record(code string, actor uuid.UUID, action string, payload map[string]interface{})
}

// Manager owns every live game, split between lobbies and started games. A
// join code is unique across both at all times; a game moves atomically
// from one map to the other on start.
type Manager struct {
	mu      sync.Mutex
	lobbies map[string]*Game
	started map[string]*Game

	users       UserStore
	broadcaster Broadcaster
	actions     ActionLogger
	rng         *rand.Rand
	log         *logrus.Logger
}

// NewManager builds a Manager around its collaborators. broadcaster may be
// set later with SetBroadcaster; actions may be nil.
func NewManager(users UserStore, actions ActionLogger) *Manager {
	return &Manager{
		lobbies: make(map[string]*Game),
		started: make(map[string]*Game),
		users:   users,
		actions: actions,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		log:     logrus.StandardLogger(),
	}
}

// SetBroadcaster wires the outbound state push. Must be called before any
// game starts.
func (m *Manager) SetBroadcaster(b Broadcaster) { m.broadcaster = b }

func (m *Manager) gameStateChanged(code string) {
	if m.broadcaster != nil {
		m.broadcaster.GameStateChanged(code)
	}
}

func (m *Manager) logAction(code string, actor uuid.UUID, action string, payload map[string]interface{}) {
	if m.actions != nil {
		m.actions.Record(code, actor, action, payload)
	}
}

// generateCode draws uppercase join codes until one is free in both
// registries. Lock held.
func (m *Manager) generateCode() string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for {
		b := make([]byte, CodeLength)
		for i := range b {
			b[i] = letters[m.rng.Intn(len(letters))]
		}
		code := string(b)
		if _, ok := m.lobbies[code]; ok {
			continue
		}
		if _, ok := m.started[code]; ok {
			continue
		}
		return code
	}
}

// Lookup finds a game by code in either registry.
func (m *Manager) Lookup(code string) (*Game, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.lobbies[code]; ok {
		return g, true
	}
	g, ok := m.started[code]
	return g, ok
}

// memberGame resolves the caller's current game, or ErrNotInGame.
func (m *Manager) memberGame(ctx context.Context, playerID uuid.UUID) (*Game, string, error) {
	code, err := m.users.Membership(ctx, playerID)
	if err != nil {
		return nil, "", err
	}
	if code == "" {
		return nil, "", ErrNotInGame
	}
	g, ok := m.Lookup(code)
	if !ok {
		return nil, "", ErrUnknownGame
	}
	return g, code, nil
}

// NewGame creates a lobby with the caller as host and returns their view.
func (m *Manager) NewGame(ctx context.Context, playerID uuid.UUID) (*models.GameView, error) {
	if code, err := m.users.Membership(ctx, playerID); err != nil {
		return nil, err
	} else if code != "" {
		return nil, ErrAlreadyInGame
	}

	name, err := m.users.DisplayName(ctx, playerID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	code := m.generateCode()
	g := newGame(m, code)
	m.lobbies[code] = g
	m.mu.Unlock()

	if err := g.addPlayer(playerID, name); err != nil {
		return nil, err
	}
	if err := m.users.SetMembership(ctx, playerID, code); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"player": playerID, "game": code}).Info("game created")
	m.logAction(code, playerID, "game_created", nil)
	return g.Snapshot(playerID), nil
}

// Join seats the caller in an open lobby and returns their view.
func (m *Manager) Join(ctx context.Context, playerID uuid.UUID, code string) (*models.GameView, error) {
	if current, err := m.users.Membership(ctx, playerID); err != nil {
		return nil, err
	} else if current != "" {
		return nil, ErrAlreadyInGame
	}

	name, err := m.users.DisplayName(ctx, playerID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if _, ok := m.started[code]; ok {
		m.mu.Unlock()
		return nil, &JoinError{Reason: "Game " + code + " has already started."}
	}
	g, ok := m.lobbies[code]
	if !ok {
		m.mu.Unlock()
		return nil, &JoinError{Reason: "Game " + code + " does not exist."}
	}
	m.mu.Unlock()

	// The registry lookup above can race the host's start; the game itself
	// re-checks start state and capacity under its own lock.
	if err := g.addPlayer(playerID, name); err != nil {
		return nil, err
	}
	if err := m.users.SetMembership(ctx, playerID, code); err != nil {
		return nil, err
	}
	m.log.WithFields(logrus.Fields{"player": playerID, "game": code}).Info("player joined")
	m.logAction(code, playerID, "player_joined", nil)
	g.sendUpdate()
	return g.Snapshot(playerID), nil
}

// Start begins a lobby game, or resolves the host's between-round and
// game-end gates on a started game.
func (m *Manager) Start(ctx context.Context, playerID uuid.UUID, params protocol.StartParams) error {
	g, code, err := m.memberGame(ctx, playerID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	_, isStarted := m.started[code]
	m.mu.Unlock()

	if isStarted {
		// Between rounds and at game end the host re-issues START to move on.
		if g.resolveHostGate(playerID, protocol.WaitingRoundStart) {
			m.logAction(code, playerID, "round_started", nil)
			return nil
		}
		if g.resolveHostGate(playerID, protocol.WaitingGameEnd) {
			m.logAction(code, playerID, "game_ended", nil)
			return nil
		}
		return &StartError{Reason: "Game has already started."}
	}

	g.mu.Lock()
	host := g.host
	g.mu.Unlock()
	if host != playerID {
		return &StartError{Reason: "You must be the host to start the game."}
	}

	if err := g.start(params); err != nil {
		return err
	}

	// Move atomically from the lobby registry to the started registry.
	m.mu.Lock()
	delete(m.lobbies, code)
	m.started[code] = g
	m.mu.Unlock()

	m.logAction(code, playerID, "game_started", map[string]interface{}{
		"starting_cards": params.StartingCards,
		"trump_order":    params.TrumpOrder,
	})
	return nil
}

// Leave unseats the caller from their lobby. Departure from a started game
// is not supported. The last player out tears the lobby down; otherwise the
// host is re-derived and the change broadcast.
func (m *Manager) Leave(ctx context.Context, playerID uuid.UUID) error {
	g, code, err := m.memberGame(ctx, playerID)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if _, ok := m.started[code]; ok {
		m.mu.Unlock()
		return ErrGameInProgress
	}
	m.mu.Unlock()

	remaining := g.removePlayer(playerID)
	if err := m.users.SetMembership(ctx, playerID, ""); err != nil {
		return err
	}
	m.logAction(code, playerID, "player_left", nil)

	if remaining == 0 {
		m.mu.Lock()
		delete(m.lobbies, code)
		m.mu.Unlock()
		m.log.WithField("game", code).Info("lobby closed")
		return nil
	}
	g.sendUpdate()
	return nil
}

// GameData returns the caller's current view of their game.
func (m *Manager) GameData(ctx context.Context, playerID uuid.UUID) (*models.GameView, error) {
	g, _, err := m.memberGame(ctx, playerID)
	if err != nil {
		return nil, err
	}
	return g.Snapshot(playerID), nil
}

// PlaceCard applies a card placement in the caller's started game.
func (m *Manager) PlaceCard(ctx context.Context, playerID uuid.UUID, card models.Card) error {
	g, code, err := m.startedGame(ctx, playerID)
	if err != nil {
		return err
	}
	if err := g.placeCard(playerID, card); err != nil {
		return err
	}
	m.logAction(code, playerID, "card_placed", map[string]interface{}{
		"suit": card.Suit, "value": card.Value,
	})
	return nil
}

// Predict records a trick prediction in the caller's started game.
func (m *Manager) Predict(ctx context.Context, playerID uuid.UUID, prediction int) error {
	g, code, err := m.startedGame(ctx, playerID)
	if err != nil {
		return err
	}
	if err := g.predict(playerID, prediction); err != nil {
		return err
	}
	m.logAction(code, playerID, "prediction_made", map[string]interface{}{
		"prediction": prediction,
	})
	return nil
}

func (m *Manager) startedGame(ctx context.Context, playerID uuid.UUID) (*Game, string, error) {
	g, code, err := m.memberGame(ctx, playerID)
	if err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	_, ok := m.started[code]
	m.mu.Unlock()
	if !ok {
		return nil, "", ErrGameNotStarted
	}
	return g, code, nil
}

// Views builds the per-player projections for one game, keyed by player ID.
func (m *Manager) Views(code string) map[uuid.UUID]*models.GameView {
	g, ok := m.Lookup(code)
	if !ok {
		return nil
	}
	views := make(map[uuid.UUID]*models.GameView)
	for _, id := range g.members() {
		views[id] = g.Snapshot(id)
	}
	return views
}

// teardown removes a finished game and clears every member's persisted
// membership.
func (m *Manager) teardown(g *Game) {
	m.mu.Lock()
	delete(m.started, g.code)
	delete(m.lobbies, g.code)
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, id := range g.members() {
		if err := m.users.SetMembership(ctx, id, ""); err != nil {
			m.log.WithError(err).WithField("player", id).Warn("failed to clear membership")
		}
	}
	m.log.WithField("game", g.code).Info("game torn down")
}
