// internal/game/errors.go
package game

import "errors"

// Sentinel errors returned by engine operations. The dispatcher maps each to
// its wire response.
var (
	ErrAlreadyInGame     = errors.New("game: player is already in a game")
	ErrNotInGame         = errors.New("game: player is not in a game")
	ErrGameNotStarted    = errors.New("game: game has not started")
	ErrGameInProgress    = errors.New("game: game is in progress")
	ErrNotYourTurn       = errors.New("game: not the player's turn")
	ErrInvalidCard       = errors.New("game: invalid card")
	ErrInvalidPrediction = errors.New("game: invalid prediction")
	ErrNameTaken         = errors.New("game: username is taken")
	ErrUnknownGame       = errors.New("game: unknown game code")
)

// JoinError is a join refusal with a reason meant for the peer.
type JoinError struct {
	Reason string
}

func (e *JoinError) Error() string { return "game: join refused: " + e.Reason }

// StartError is a start refusal with a reason meant for the peer.
type StartError struct {
	Reason string
}

func (e *StartError) Error() string { return "game: start refused: " + e.Reason }
