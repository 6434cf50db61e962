// internal/models/card.go
package models

import "github.com/google/uuid"

// Suits of a standard deck, single-letter form. NoTrump marks a round with
// no trump suit in a trump rotation string.
const (
	SuitHearts   = "H"
	SuitClubs    = "C"
	SuitDiamonds = "D"
	SuitSpades   = "S"
	NoTrump      = "-"
)

// Card is an immutable (suit, value) pair. Values run 2 through 14 (Ace).
type Card struct {
	Suit  string `json:"suit"`
	Value int    `json:"value"`
}

// PlacedCard is a card on the pile, carrying the player who placed it. The
// player attribution is only meaningful while the card is in play.
type PlacedCard struct {
	Card
	Player uuid.UUID `json:"player"`
}

// DeckSize is the number of cards in a full deck.
const DeckSize = 52

// FullDeck returns a fresh standard 52-card deck.
func FullDeck() []Card {
	suits := []string{SuitHearts, SuitClubs, SuitDiamonds, SuitSpades}
	deck := make([]Card, 0, DeckSize)
	for _, suit := range suits {
		for value := 2; value <= 14; value++ {
			deck = append(deck, Card{Suit: suit, Value: value})
		}
	}
	return deck
}

// ValidSuit reports whether s is one of the four card suits.
func ValidSuit(s string) bool {
	switch s {
	case SuitHearts, SuitClubs, SuitDiamonds, SuitSpades:
		return true
	}
	return false
}
