package tile

import (
	"fmt"
	rand "math/rand/v2"
	"sort"
)

// DeckSize is the number of physical tiles in a full deck: four copies of
// each of the 14 kinds.
const DeckSize = 56

// NewDeck creates an unshuffled deck. Generation is deterministic: tiles
// appear in kind order with ids "{glyph}_0" through "{glyph}_3".
func NewDeck() []Tile {
	deck := make([]Tile, 0, DeckSize)
	for k := Kind(0); k < numKinds; k++ {
		for i := 0; i < 4; i++ {
			deck = append(deck, Tile{
				ID:   fmt.Sprintf("%s_%d", k, i),
				Kind: k,
			})
		}
	}
	return deck
}

// Shuffle permutes the deck in place with a Fisher-Yates shuffle driven by
// the injected RNG so dealing is reproducible in tests.
func Shuffle(deck []Tile, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// VisualSort orders a hand in place: suit ascending (black before red),
// then group in the order 1, 2, 0, then order value descending. The group
// ordering is semantic rather than aesthetic; the Chi detector relies on
// tiles of one group being adjacent.
func VisualSort(hand []Tile) {
	sort.SliceStable(hand, func(i, j int) bool {
		a, b := hand[i].Kind, hand[j].Kind
		if a.Suit() != b.Suit() {
			return a.Suit() < b.Suit()
		}
		if a.Group() != b.Group() {
			return groupRank(a.Group()) < groupRank(b.Group())
		}
		if a.OrderValue() != b.OrderValue() {
			return a.OrderValue() > b.OrderValue()
		}
		return hand[i].ID < hand[j].ID
	})
}

// groupRank maps group to its display position: runs of group 1 first,
// group 2 second, soldiers last.
func groupRank(g int) int {
	switch g {
	case 1:
		return 0
	case 2:
		return 1
	default:
		return 2
	}
}
