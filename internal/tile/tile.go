package tile

import (
	"encoding/json"
	"fmt"
)

// Suit represents a tile colour. The deck contains two suits of seven
// xiangqi piece kinds each.
type Suit int

const (
	Black Suit = iota
	Red
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Black:
		return "black"
	case Red:
		return "red"
	default:
		return "?"
	}
}

// Kind identifies one of the 14 tile faces.
type Kind int

const (
	// Black suit
	BlackGeneral Kind = iota // 將
	BlackAdvisor             // 士
	BlackElephant            // 象
	BlackChariot             // 車
	BlackHorse               // 馬
	BlackCannon              // 包
	BlackSoldier             // 卒
	// Red suit
	RedGeneral  // 帥
	RedAdvisor  // 仕
	RedElephant // 相
	RedChariot  // 俥
	RedHorse    // 傌
	RedCannon   // 炮
	RedSoldier  // 兵

	numKinds
)

// Hidden is a sentinel kind used when a hand is redacted in a snapshot.
// It never appears in a deck.
const Hidden Kind = -1

// kindMeta carries the static metadata attached to every kind. Group 0
// tiles (the two soldiers) never participate in runs; groups 1 and 2 each
// form one run triple per suit, ordered general>advisor>elephant and
// chariot>horse>cannon.
type kindMeta struct {
	glyph string
	suit  Suit
	group int
	order int
}

var kindTable = [numKinds]kindMeta{
	BlackGeneral:  {"將", Black, 1, 3},
	BlackAdvisor:  {"士", Black, 1, 2},
	BlackElephant: {"象", Black, 1, 1},
	BlackChariot:  {"車", Black, 2, 3},
	BlackHorse:    {"馬", Black, 2, 2},
	BlackCannon:   {"包", Black, 2, 1},
	BlackSoldier:  {"卒", Black, 0, 0},
	RedGeneral:    {"帥", Red, 1, 3},
	RedAdvisor:    {"仕", Red, 1, 2},
	RedElephant:   {"相", Red, 1, 1},
	RedChariot:    {"俥", Red, 2, 3},
	RedHorse:      {"傌", Red, 2, 2},
	RedCannon:     {"炮", Red, 2, 1},
	RedSoldier:    {"兵", Red, 0, 0},
}

// Kinds lists every tile face in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, int(numKinds))
	for k := Kind(0); k < numKinds; k++ {
		out = append(out, k)
	}
	return out
}

// String returns the tile glyph (e.g. "將").
func (k Kind) String() string {
	if k == Hidden {
		return "?"
	}
	if k < 0 || k >= numKinds {
		return "?"
	}
	return kindTable[k].glyph
}

// Suit returns the suit of the kind.
func (k Kind) Suit() Suit { return kindTable[k].suit }

// Group returns the run group of the kind (0 means the kind never runs).
func (k Kind) Group() int { return kindTable[k].group }

// OrderValue returns the ordinal used for sorting and the AI discard
// heuristics, in {0,1,2,3}.
func (k Kind) OrderValue() int { return kindTable[k].order }

// MarshalJSON encodes the kind as its glyph so the wire format matches
// what clients render.
func (k Kind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// UnmarshalJSON decodes a glyph back into a kind.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "?" {
		*k = Hidden
		return nil
	}
	for cand := Kind(0); cand < numKinds; cand++ {
		if kindTable[cand].glyph == s {
			*k = cand
			return nil
		}
	}
	return fmt.Errorf("unknown tile kind %q", s)
}

// RunSets holds the only four triples the rule engine recognises as runs.
// Each triple shares suit and group, with order values {1,2,3}.
var RunSets = [4][3]Kind{
	{BlackGeneral, BlackAdvisor, BlackElephant},
	{BlackChariot, BlackHorse, BlackCannon},
	{RedGeneral, RedAdvisor, RedElephant},
	{RedChariot, RedHorse, RedCannon},
}

// RunSetFor returns the run triple containing k, or false when the kind
// never participates in runs.
func RunSetFor(k Kind) ([3]Kind, bool) {
	if k == Hidden || k.Group() == 0 {
		return [3]Kind{}, false
	}
	for _, set := range RunSets {
		for _, m := range set {
			if m == k {
				return set, true
			}
		}
	}
	return [3]Kind{}, false
}

// Tile is a physical tile. IDs are stable within one deck generation and
// follow the form "{glyph}_{0..3}".
type Tile struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
}

// String returns "glyph(id)" for logs.
func (t Tile) String() string {
	return fmt.Sprintf("%s(%s)", t.Kind, t.ID)
}

// HiddenTile returns the placeholder emitted in place of a concealed tile
// when a snapshot is redacted for a non-owner.
func HiddenTile() Tile {
	return Tile{ID: "hidden", Kind: Hidden}
}
