// Package ai holds the stateless seat policy. The room drives it whenever
// an AI seat, or an offline human seat, holds the action; each query gets
// the seat's view of the room and returns exactly one legal action.
package ai

import (
	rand "math/rand/v2"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/rules"
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// ActionType enumerates everything the policy may decide to do.
type ActionType int

const (
	DrawTile ActionType = iota
	DiscardTile
	DeclareConcealedQuad
	UpgradeTripletToQuad
	ClaimChi
	ClaimPeng
	ClaimGang
	DeclareWin
	PassClaim
)

// Action is one decision. Only the fields relevant to the type are set.
type Action struct {
	Type     ActionType
	TileID   string       // DiscardTile
	Kind     tile.Kind    // quad declarations
	ChiTiles [2]tile.Tile // ClaimChi
}

// View is the seat's window onto the room at decision time.
type View struct {
	Hand            []tile.Tile // full hand, drawn tile included when present
	Drawn           *tile.Tile
	MeldCount       int         // complete groups already materialised
	ExposedTriplets []tile.Kind // kinds of the seat's open triplet melds

	Discard         *tile.Tile // the tile being claimed, when responding
	IsNextOfDiscard bool       // seat is immediately clockwise of the discarder
	CanChi          bool
	CanPeng         bool
	CanGang         bool
	CanWin          bool

	MustDiscard   bool // forced discard after a claim, no draw available
	DiscardCounts map[tile.Kind]int
}

// Policy is stateless apart from the RNG used for think-time jitter and
// tie-breaks.
type Policy struct {
	rng *rand.Rand
}

// NewPolicy creates a policy around the injected RNG.
func NewPolicy(rng *rand.Rand) *Policy {
	return &Policy{rng: rng}
}

// DecideClaim answers a claim solicitation: win beats quad beats triplet
// beats run, and anything else is a pass.
func (p *Policy) DecideClaim(v View) Action {
	if v.CanWin {
		return Action{Type: DeclareWin}
	}
	if v.CanGang {
		return Action{Type: ClaimGang}
	}
	if v.CanPeng {
		return Action{Type: ClaimPeng}
	}
	if v.CanChi && v.IsNextOfDiscard && v.Discard != nil {
		opts := rules.ChiOptions(v.Hand, *v.Discard)
		if len(opts) > 0 {
			return Action{Type: ClaimChi, ChiTiles: opts[0]}
		}
	}
	return Action{Type: PassClaim}
}

// DecideTurn produces the seat's own-turn action for every turn phase.
func (p *Policy) DecideTurn(v View) Action {
	if v.Drawn == nil && !v.MustDiscard {
		// Before drawing: a concealed quad from the resting hand beats a draw.
		if kinds := rules.ConcealedQuadKinds(v.Hand, nil); len(kinds) > 0 {
			return Action{Type: DeclareConcealedQuad, Kind: kinds[0]}
		}
		return Action{Type: DrawTile}
	}

	if v.Drawn != nil {
		if rules.CheckWin(v.Hand, v.MeldCount).Win {
			return Action{Type: DeclareWin}
		}
		if kinds := rules.ConcealedQuadKinds(v.Hand, nil); len(kinds) > 0 {
			return Action{Type: DeclareConcealedQuad, Kind: kinds[0]}
		}
		if kinds := rules.UpgradeQuadKinds(v.ExposedTriplets, *v.Drawn); len(kinds) > 0 {
			return Action{Type: UpgradeTripletToQuad, Kind: kinds[0]}
		}
	}

	return Action{Type: DiscardTile, TileID: p.ChooseDiscard(v).ID}
}

// ChooseDiscard scores every hand tile and discards the lowest scorer.
// Higher scores mean the tile is worth keeping.
func (p *Policy) ChooseDiscard(v View) tile.Tile {
	best := v.Hand[0]
	bestScore := int(^uint(0) >> 1)
	for _, t := range v.Hand {
		s := p.keepScore(v, t)
		if s < bestScore || (s == bestScore && discardTieBreak(t, best)) {
			best = t
			bestScore = s
		}
	}
	return best
}

// keepScore implements the discard heuristic: pairs, triplets, and quads
// held raise the score, as does being one tile away from a run; tiles the
// table has already seen a lot of are safer to throw.
func (p *Policy) keepScore(v View, t tile.Tile) int {
	count := rules.CountKind(v.Hand, t.Kind)

	score := 0
	switch {
	case count >= 4:
		score += 25
	case count == 3:
		score += 15
	case count == 2:
		score += 5
	}

	// Would removing this tile destroy a potential run?
	without := withoutTile(v.Hand, t.ID)
	if len(rules.ChiOptions(without, t)) > 0 {
		score += 8
	}

	score += 2 * t.Kind.OrderValue()
	score += 2 * p.dangerEstimate(v, t.Kind)
	score -= 3 * v.DiscardCounts[t.Kind]
	return score
}

// dangerEstimate guesses how live a kind still is from the discard pile:
// unseen kinds are dangerous, exhausted ones are safe, and run-capable
// kinds carry an extra premium.
func (p *Policy) dangerEstimate(v View, k tile.Kind) int {
	danger := 0
	switch v.DiscardCounts[k] {
	case 0:
		danger = 5
	case 1:
		danger = 3
	case 2:
		danger = 1
	}
	if k.Group() != 0 {
		danger += 2
	}
	return danger
}

// discardTieBreak prefers the lower order value, then the lower group.
func discardTieBreak(a, b tile.Tile) bool {
	if a.Kind.OrderValue() != b.Kind.OrderValue() {
		return a.Kind.OrderValue() < b.Kind.OrderValue()
	}
	return a.Kind.Group() < b.Kind.Group()
}

func withoutTile(hand []tile.Tile, id string) []tile.Tile {
	out := make([]tile.Tile, 0, len(hand)-1)
	for _, t := range hand {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}
