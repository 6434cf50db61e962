// internal/game/view.go
package game

import (
	"github.com/google/uuid"

	"github.com/blobgame/blob/internal/models"
)

// Snapshot projects the game into the view sent to one player. Every round
// record is copied; only the receiving player's records are merged with
// their private hand and initial-hand snapshot.
func (g *Game) Snapshot(forPlayer uuid.UUID) *models.GameView {
	g.mu.Lock()
	defer g.mu.Unlock()

	view := &models.GameView{
		Host:               g.host,
		Code:               g.code,
		MaxPlayers:         MaxPlayers,
		TrumpOrder:         g.trumpOrder,
		InitialPlayerOrder: append([]uuid.UUID(nil), g.initialOrder...),
		CurrentPlayerOrder: append([]uuid.UUID(nil), g.currentOrder...),
		Started:            g.started,
		NumberOfRounds:     g.numberOfRounds,
		RoundNumber:        g.roundNumber,
		TricksAvailable:    g.tricksAvailable,
		CurrentTrump:       g.currentTrump,
		WaitingFor:         g.waitingFor,
		Pile:               append([]models.PlacedCard(nil), g.pile...),
		Players:            make(map[string]*models.PlayerView, len(g.players)),
	}

	for id, p := range g.players {
		pv := &models.PlayerView{
			Username:   p.username,
			TotalScore: p.totalScore,
			Rounds:     make(map[int]*models.RoundRecord, len(p.rounds)),
		}
		for round, rec := range p.rounds {
			cp := *rec
			cp.Hand = nil
			cp.InitialHand = nil
			if id == forPlayer {
				if hs, ok := p.hands[round]; ok {
					cp.Hand = append([]models.Card(nil), hs.hand...)
					cp.InitialHand = append([]models.Card(nil), hs.initialHand...)
				}
			}
			pv.Rounds[round] = &cp
		}
		view.Players[id.String()] = pv
	}
	return view
}

// members returns the IDs of every seated player.
func (g *Game) members() []uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]uuid.UUID(nil), g.initialOrder...)
}
