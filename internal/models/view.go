// internal/models/view.go
package models

import "github.com/google/uuid"

// RoundRecord tracks one player's progress through one round. Hand and
// InitialHand are private; the view projection fills them only in the
// receiving player's own record.
type RoundRecord struct {
	Prediction int `json:"prediction"`
	CardsLeft  int `json:"cards_left"`
	TricksWon  int `json:"tricks_won"`
	Score      int `json:"score"`

	Hand        []Card `json:"hand,omitempty"`
	InitialHand []Card `json:"initial_hand,omitempty"`
}

// PlayerView is the public record of one seated player, keyed by round
// number.
type PlayerView struct {
	Username   string               `json:"username"`
	TotalScore int                  `json:"total_score"`
	Rounds     map[int]*RoundRecord `json:"rounds"`
}

// WaitingFor names the player whose action currently blocks the game and
// the reason tag (one of the G* waiting states).
type WaitingFor struct {
	Player uuid.UUID `json:"player"`
	Reason string    `json:"reason"`
}

// GameView is the per-player projection of a game, pushed on every state
// broadcast. Only the receiver's own round records carry hand data; other
// players' hands are never included.
type GameView struct {
	Host               uuid.UUID              `json:"host"`
	Code               string                 `json:"code"`
	MaxPlayers         int                    `json:"max_players"`
	TrumpOrder         string                 `json:"trump_order"`
	InitialPlayerOrder []uuid.UUID            `json:"initial_player_order"`
	CurrentPlayerOrder []uuid.UUID            `json:"current_player_order"`
	Started            bool                   `json:"started"`
	NumberOfRounds     int                    `json:"number_of_rounds"`
	RoundNumber        int                    `json:"round_number"`
	TricksAvailable    int                    `json:"tricks_available"`
	CurrentTrump       string                 `json:"current_trump"`
	WaitingFor         WaitingFor             `json:"waiting_for"`
	Pile               []PlacedCard           `json:"pile"`
	Players            map[string]*PlayerView `json:"players"`
}
