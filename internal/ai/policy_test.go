package ai

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/randutil"
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

func hand(kinds ...tile.Kind) []tile.Tile {
	seen := map[tile.Kind]int{}
	out := make([]tile.Tile, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, tile.Tile{ID: fmt.Sprintf("%s_%d", k, seen[k]), Kind: k})
		seen[k]++
	}
	return out
}

func newTestPolicy() *Policy { return NewPolicy(randutil.New(1)) }

func TestDecideClaimPriority(t *testing.T) {
	p := newTestPolicy()
	discard := tile.Tile{ID: "d", Kind: tile.BlackHorse}

	v := View{
		Hand:            hand(tile.BlackChariot, tile.BlackCannon),
		Discard:         &discard,
		IsNextOfDiscard: true,
		CanWin:          true,
		CanGang:         true,
		CanPeng:         true,
		CanChi:          true,
	}
	assert.Equal(t, DeclareWin, p.DecideClaim(v).Type)

	v.CanWin = false
	assert.Equal(t, ClaimGang, p.DecideClaim(v).Type)

	v.CanGang = false
	assert.Equal(t, ClaimPeng, p.DecideClaim(v).Type)

	v.CanPeng = false
	act := p.DecideClaim(v)
	require.Equal(t, ClaimChi, act.Type)
	kinds := map[tile.Kind]bool{act.ChiTiles[0].Kind: true, act.ChiTiles[1].Kind: true}
	assert.True(t, kinds[tile.BlackChariot])
	assert.True(t, kinds[tile.BlackCannon])

	// Not the clockwise neighbour: the run is off the table.
	v.IsNextOfDiscard = false
	assert.Equal(t, PassClaim, p.DecideClaim(v).Type)
}

func TestDecideTurnBeforeDraw(t *testing.T) {
	p := newTestPolicy()

	v := View{Hand: hand(tile.BlackGeneral, tile.RedSoldier, tile.BlackChariot)}
	assert.Equal(t, DrawTile, p.DecideTurn(v).Type)

	// A concealed quad in the resting hand beats drawing.
	v.Hand = hand(tile.RedAdvisor, tile.RedAdvisor, tile.RedAdvisor, tile.RedAdvisor,
		tile.BlackSoldier, tile.RedSoldier, tile.BlackChariot)
	act := p.DecideTurn(v)
	require.Equal(t, DeclareConcealedQuad, act.Type)
	assert.Equal(t, tile.RedAdvisor, act.Kind)
}

func TestDecideTurnAfterDraw(t *testing.T) {
	p := newTestPolicy()

	winning := hand(
		tile.RedGeneral, tile.RedGeneral,
		tile.BlackAdvisor, tile.BlackAdvisor, tile.BlackAdvisor,
		tile.RedChariot, tile.RedHorse, tile.RedCannon,
	)
	drawn := winning[len(winning)-1]
	v := View{Hand: winning, Drawn: &drawn}
	assert.Equal(t, DeclareWin, p.DecideTurn(v).Type)

	// Upgrade to quad when the drawn tile matches an exposed triplet.
	h := hand(tile.BlackHorse, tile.RedSoldier, tile.BlackGeneral, tile.RedElephant, tile.BlackCannon)
	d := h[0]
	v = View{Hand: h, Drawn: &d, MeldCount: 1, ExposedTriplets: []tile.Kind{tile.BlackHorse}}
	act := p.DecideTurn(v)
	require.Equal(t, UpgradeTripletToQuad, act.Type)
	assert.Equal(t, tile.BlackHorse, act.Kind)
}

func TestDecideTurnForcedDiscard(t *testing.T) {
	p := newTestPolicy()

	h := hand(tile.BlackGeneral, tile.RedSoldier)
	v := View{Hand: h, MustDiscard: true, DiscardCounts: map[tile.Kind]int{}}
	act := p.DecideTurn(v)
	require.Equal(t, DiscardTile, act.Type)
	assert.NotEmpty(t, act.TileID)
}

func TestChooseDiscardKeepsStructure(t *testing.T) {
	p := newTestPolicy()

	// A lone soldier should go before the pair or the run partners.
	h := hand(
		tile.RedGeneral, tile.RedGeneral,
		tile.BlackChariot, tile.BlackHorse,
		tile.BlackSoldier,
	)
	v := View{Hand: h, DiscardCounts: map[tile.Kind]int{tile.BlackSoldier: 2}}
	chosen := p.ChooseDiscard(v)
	assert.Equal(t, tile.BlackSoldier, chosen.Kind)
}
