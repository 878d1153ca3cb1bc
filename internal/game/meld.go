package game

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// MeldKind is the designation of a materialised combination. Pairs exist
// only transiently inside the win search; seats never hold exposed pair
// melds.
type MeldKind int

const (
	MeldRun MeldKind = iota
	MeldTriplet
	MeldQuad
	MeldPair
)

var meldNames = map[MeldKind]string{
	MeldRun:     "Run",
	MeldTriplet: "Triplet",
	MeldQuad:    "Quad",
	MeldPair:    "Pair",
}

// String returns the wire name of the designation.
func (k MeldKind) String() string {
	if s, ok := meldNames[k]; ok {
		return s
	}
	return "Unknown"
}

// MarshalJSON encodes the designation by name.
func (k MeldKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Meld is a materialised tile combination held by a seat.
type Meld struct {
	ID     string      `json:"id"`
	Kind   MeldKind    `json:"kind"`
	Tiles  []tile.Tile `json:"tiles"`
	IsOpen bool        `json:"isOpen"`

	// Set when the meld consumed another seat's discard.
	FromSeat      int    `json:"fromSeat"` // -1 when self-formed
	ClaimedTileID string `json:"claimedTileId,omitempty"`
}

// newMeld builds a meld with a fresh id, tiles sorted by order value
// descending so exposed melds render consistently.
func newMeld(kind MeldKind, tiles []tile.Tile, isOpen bool, fromSeat int, claimedTileID string) *Meld {
	sorted := make([]tile.Tile, len(tiles))
	copy(sorted, tiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Kind.OrderValue() > sorted[j].Kind.OrderValue()
	})
	return &Meld{
		ID:            uuid.NewString(),
		Kind:          kind,
		Tiles:         sorted,
		IsOpen:        isOpen,
		FromSeat:      fromSeat,
		ClaimedTileID: claimedTileID,
	}
}

// shapeTileCount is the meld's contribution to the hand-size invariant. A
// quad physically holds four tiles but still counts as one three-tile
// group, the conventional reduction.
func (m *Meld) shapeTileCount() int {
	if m.Kind == MeldQuad {
		return 3
	}
	return len(m.Tiles)
}
