// internal/game/game.go
package game

import (
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/blobgame/blob/internal/models"
	"github.com/blobgame/blob/internal/protocol"
)

// MaxPlayers is the seat cap for every game.
const MaxPlayers = 7

// handState is the private per-round card state of one player.
type handState struct {
	hand        []models.Card
	initialHand []models.Card
}

// playerState is one seated player. Username is resolved once on join so
// broadcasts never hit the user store.
type playerState struct {
	username   string
	totalScore int
	rounds     map[int]*models.RoundRecord
	hands      map[int]*handState
}

// Game holds the entire state of a single game instance in memory. All
// fields are guarded by mu; the round progression goroutine and the action
// handlers coordinate exclusively through the waitingFor marker and cond.
type Game struct {
	mu   sync.Mutex
	cond *sync.Cond

	manager *Manager
	rng     *rand.Rand
	log     *logrus.Entry

	host          uuid.UUID
	code          string
	startingCards int
	trumpOrder    string
	initialOrder  []uuid.UUID
	currentOrder  []uuid.UUID

	started         bool
	numberOfRounds  int
	roundNumber     int
	tricksAvailable int
	currentTrump    string
	waitingFor      models.WaitingFor
	pile            []models.PlacedCard

	players map[uuid.UUID]*playerState
}

func newGame(m *Manager, code string) *Game {
	g := &Game{
		manager:    m,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		log:        logrus.WithField("game", code),
		code:       code,
		trumpOrder: "HCDS-",
		players:    make(map[uuid.UUID]*playerState),
	}
	g.cond = sync.NewCond(&g.mu)
	return g
}

// Code returns the game's join code.
func (g *Game) Code() string { return g.code }

// addPlayer seats a player in the lobby. Start state and capacity are
// checked under the game lock, so a seat can never appear in a game whose
// start raced the admission. The first seat becomes host. The waiting marker
// tracks lobby readiness: below two players the game cannot start.
func (g *Game) addPlayer(playerID uuid.UUID, username string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return &JoinError{Reason: "Game " + g.code + " has already started."}
	}
	if len(g.players) >= MaxPlayers {
		return &JoinError{Reason: "Game " + g.code + " is full."}
	}

	g.players[playerID] = &playerState{
		username: username,
		rounds:   make(map[int]*models.RoundRecord),
		hands:    make(map[int]*handState),
	}
	g.initialOrder = append(g.initialOrder, playerID)

	if len(g.players) == 1 {
		g.host = playerID
	}
	g.refreshLobbyGate()
	return nil
}

// removePlayer unseats a player from the lobby and re-derives the host as
// the oldest remaining seat. Returns the number of players left.
func (g *Game) removePlayer(playerID uuid.UUID) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.players, playerID)
	for i, id := range g.initialOrder {
		if id == playerID {
			g.initialOrder = append(g.initialOrder[:i], g.initialOrder[i+1:]...)
			break
		}
	}
	if len(g.players) == 0 {
		return 0
	}
	if g.host == playerID {
		g.host = g.initialOrder[0]
	}
	g.refreshLobbyGate()
	return len(g.players)
}

// refreshLobbyGate keeps the lobby waiting marker consistent with the seat
// count. Lock held.
func (g *Game) refreshLobbyGate() {
	if len(g.players) < 2 {
		g.waitingFor = models.WaitingFor{Player: g.host, Reason: protocol.WaitingMinPlayers}
	} else {
		g.waitingFor = models.WaitingFor{Player: g.host, Reason: protocol.WaitingGameStart}
	}
}

// start validates start parameters and launches the round progression
// goroutine. Caller must have verified the requester is the host.
func (g *Game) start(params protocol.StartParams) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return &StartError{Reason: "Game has already started."}
	}
	if len(g.players) < 2 {
		return &StartError{Reason: "Not enough players to start the game."}
	}
	if params.StartingCards < 0 || params.StartingCards > models.DeckSize/len(g.players) {
		return &StartError{Reason: "Invalid starting cards."}
	}
	if !validTrumpOrder(params.TrumpOrder) {
		return &StartError{Reason: "Invalid trump order."}
	}

	g.startingCards = params.StartingCards
	g.trumpOrder = params.TrumpOrder
	g.started = true
	g.waitingFor = models.WaitingFor{Player: g.host, Reason: protocol.WaitingNone}
	if g.startingCards == 0 {
		g.numberOfRounds = models.DeckSize / len(g.players)
	} else {
		g.numberOfRounds = g.startingCards
	}
	g.log.WithFields(logrus.Fields{
		"rounds": g.numberOfRounds,
		"trumps": g.trumpOrder,
	}).Info("game started")

	go g.run()
	return nil
}

// run drives the game from the first round to GAME_END. It is the only
// goroutine that advances game state; player actions reach it through the
// turn gate.
func (g *Game) run() {
	for {
		g.playRound()

		g.mu.Lock()
		g.roundNumber++
		finished := g.roundNumber >= g.numberOfRounds
		if finished {
			g.waitingFor = models.WaitingFor{Player: g.host, Reason: protocol.WaitingGameEnd}
		} else {
			g.waitingFor = models.WaitingFor{Player: g.host, Reason: protocol.WaitingRoundStart}
		}
		host := g.host
		reason := g.waitingFor.Reason
		g.mu.Unlock()

		g.sendUpdate()
		g.awaitGate(host, reason)

		if finished {
			g.manager.teardown(g)
			return
		}
	}
}

// playRound deals, collects predictions, plays every trick and applies the
// round scores.
func (g *Game) playRound() {
	g.mu.Lock()
	g.tricksAvailable = g.numberOfRounds - g.roundNumber
	g.currentTrump = trumpForRound(g.trumpOrder, g.roundNumber)
	lead := g.initialOrder[g.roundNumber%len(g.players)]
	g.currentOrder = rotateTo(g.initialOrder, lead)
	for _, id := range g.currentOrder {
		g.players[id].rounds[g.roundNumber] = &models.RoundRecord{CardsLeft: g.tricksAvailable}
	}
	g.deal()
	tricks := g.tricksAvailable
	order := append([]uuid.UUID(nil), g.currentOrder...)
	round := g.roundNumber
	g.mu.Unlock()

	g.log.WithFields(logrus.Fields{
		"round":  round,
		"tricks": tricks,
		"trump":  g.currentTrump,
	}).Info("round started")

	for _, id := range order {
		g.gateAndWait(id, protocol.WaitingPrediction)
	}

	winner := order[0]
	for trick := 0; trick < tricks; trick++ {
		g.mu.Lock()
		g.pile = nil
		g.currentOrder = rotateTo(g.initialOrder, winner)
		trickOrder := append([]uuid.UUID(nil), g.currentOrder...)
		g.mu.Unlock()

		for _, id := range trickOrder {
			g.gateAndWait(id, protocol.WaitingPlaceCard)
		}

		g.mu.Lock()
		win := winningCard(g.pile, g.currentTrump)
		winner = win.Player
		g.players[winner].rounds[round].TricksWon++
		g.mu.Unlock()

		g.log.WithFields(logrus.Fields{
			"round":  round,
			"trick":  trick,
			"winner": winner,
		}).Info("trick won")
		g.manager.logAction(g.code, winner, "trick_won", map[string]interface{}{
			"round": round, "trick": trick,
		})
		g.sendUpdate()
	}

	g.mu.Lock()
	for _, p := range g.players {
		rec := p.rounds[round]
		if rec.TricksWon == rec.Prediction {
			rec.Score = rec.TricksWon + 10
			p.totalScore += rec.Score
		}
	}
	g.mu.Unlock()
	g.log.WithField("round", round).Info("round scored")
}

// gateAndWait blocks the progression goroutine until the named player's
// qualifying action resolves the gate. The state broadcast happens after
// the marker is set so every client sees whose action is awaited.
func (g *Game) gateAndWait(playerID uuid.UUID, reason string) {
	g.mu.Lock()
	g.waitingFor = models.WaitingFor{Player: playerID, Reason: reason}
	g.mu.Unlock()

	g.sendUpdate()
	g.awaitGate(playerID, reason)
}

// awaitGate suspends until the waiting marker no longer matches
// (playerID, reason). Resolution happens exactly once, by the action
// handler that validated and applied the move.
func (g *Game) awaitGate(playerID uuid.UUID, reason string) {
	g.mu.Lock()
	for g.waitingFor.Player == playerID && g.waitingFor.Reason == reason {
		g.cond.Wait()
	}
	g.mu.Unlock()
}

// deal draws a uniform random sample of tricks×players distinct cards and
// distributes them one at a time in seating order. Lock held.
func (g *Game) deal() {
	deck := models.FullDeck()
	g.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	for _, id := range g.currentOrder {
		g.players[id].hands[g.roundNumber] = &handState{}
	}
	next := 0
	for t := 0; t < g.tricksAvailable; t++ {
		for _, id := range g.currentOrder {
			card := deck[next]
			next++
			hs := g.players[id].hands[g.roundNumber]
			hs.hand = append(hs.hand, card)
			hs.initialHand = append(hs.initialHand, card)
		}
	}
}

// placeCard validates and applies a card placement for the named player,
// then resolves the turn gate.
func (g *Game) placeCard(playerID uuid.UUID, card models.Card) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.waitingFor.Player != playerID || g.waitingFor.Reason != protocol.WaitingPlaceCard {
		return ErrNotYourTurn
	}
	hs := g.players[playerID].hands[g.roundNumber]
	if !handContains(hs.hand, card) {
		return ErrInvalidCard
	}
	if len(g.pile) > 0 {
		lead := g.pile[0].Suit
		if card.Suit != lead && holdsSuit(hs.hand, lead) {
			return ErrInvalidCard
		}
	}

	g.pile = append(g.pile, models.PlacedCard{Card: card, Player: playerID})
	hs.hand = removeCard(hs.hand, card)
	g.players[playerID].rounds[g.roundNumber].CardsLeft--
	g.resolveGate(playerID)
	return nil
}

// predict validates and records a trick prediction for the named player,
// then resolves the turn gate. The last seat may not submit the value that
// would make the table's predictions sum to the tricks available.
func (g *Game) predict(playerID uuid.UUID, prediction int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.waitingFor.Player != playerID || g.waitingFor.Reason != protocol.WaitingPrediction {
		return ErrNotYourTurn
	}
	if prediction < 0 || prediction > g.tricksAvailable {
		return ErrInvalidPrediction
	}
	if playerID == g.currentOrder[len(g.currentOrder)-1] {
		sum := 0
		for _, p := range g.players {
			sum += p.rounds[g.roundNumber].Prediction
		}
		if prediction == g.tricksAvailable-sum {
			return ErrInvalidPrediction
		}
	}

	g.players[playerID].rounds[g.roundNumber].Prediction = prediction
	g.resolveGate(playerID)
	return nil
}

// resolveGate clears the waiting marker after a qualifying action and wakes
// the progression goroutine. Lock held.
func (g *Game) resolveGate(playerID uuid.UUID) {
	g.waitingFor = models.WaitingFor{Player: playerID, Reason: protocol.WaitingNone}
	g.cond.Broadcast()
}

// resolveHostGate clears a host-directed gate (round start, game end).
// Returns false when the marker does not match.
func (g *Game) resolveHostGate(playerID uuid.UUID, reason string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.waitingFor.Player != playerID || g.waitingFor.Reason != reason {
		return false
	}
	g.resolveGate(playerID)
	return true
}

// sendUpdate asks the manager to broadcast fresh per-player views. Must be
// called without the game lock held: view projection takes it.
func (g *Game) sendUpdate() {
	g.manager.gameStateChanged(g.code)
}
