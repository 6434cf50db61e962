// internal/game/rules.go
package game

import (
	"strings"

	"github.com/google/uuid"

	"github.com/blobgame/blob/internal/models"
)

// MaxTrumpOrderLength caps the trump rotation string accepted at game start.
const MaxTrumpOrderLength = 17

// trumpForRound returns the trump suit for a round: the rotation string
// indexed by round number, wrapping around.
func trumpForRound(trumpOrder string, roundNumber int) string {
	return string(trumpOrder[roundNumber%len(trumpOrder)])
}

// validTrumpOrder reports whether the rotation string is non-empty,
// length-capped and drawn from {H,C,D,S,-}.
func validTrumpOrder(trumpOrder string) bool {
	if len(trumpOrder) == 0 || len(trumpOrder) > MaxTrumpOrderLength {
		return false
	}
	for _, r := range trumpOrder {
		if !strings.ContainsRune("HCDS-", r) {
			return false
		}
	}
	return true
}

// rotateTo returns the seating order rotated so that first leads. first must
// be present in order.
func rotateTo(order []uuid.UUID, first uuid.UUID) []uuid.UUID {
	idx := 0
	for i, id := range order {
		if id == first {
			idx = i
			break
		}
	}
	rotated := make([]uuid.UUID, 0, len(order))
	rotated = append(rotated, order[idx:]...)
	rotated = append(rotated, order[:idx]...)
	return rotated
}

// suitClass ranks a card's suit for trick resolution: trump beats the suit
// led beats everything else. With no trump this round, no card is in the
// trump class.
func suitClass(c models.Card, trump, lead string) int {
	switch {
	case c.Suit == trump:
		return 2
	case c.Suit == lead:
		return 1
	default:
		return 0
	}
}

// winningCard picks the trick winner from a non-empty pile: highest card by
// (trump match, lead-suit match, value). The first card played sets the
// suit led.
func winningCard(pile []models.PlacedCard, trump string) models.PlacedCard {
	lead := pile[0].Suit
	best := pile[0]
	bestClass := suitClass(best.Card, trump, lead)
	for _, pc := range pile[1:] {
		c := suitClass(pc.Card, trump, lead)
		if c > bestClass || (c == bestClass && pc.Value > best.Value) {
			best = pc
			bestClass = c
		}
	}
	return best
}

// handContains reports whether hand holds the exact (suit, value) card.
func handContains(hand []models.Card, card models.Card) bool {
	for _, c := range hand {
		if c == card {
			return true
		}
	}
	return false
}

// holdsSuit reports whether any card in hand matches the suit.
func holdsSuit(hand []models.Card, suit string) bool {
	for _, c := range hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// removeCard deletes the first occurrence of card from hand, preserving
// order.
func removeCard(hand []models.Card, card models.Card) []models.Card {
	for i, c := range hand {
		if c == card {
			return append(hand[:i], hand[i+1:]...)
		}
	}
	return hand
}
