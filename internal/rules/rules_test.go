package rules

import (
	"fmt"
	rand "math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/randutil"
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// hand builds tiles with synthetic ids, one per copy of each listed kind.
func hand(kinds ...tile.Kind) []tile.Tile {
	seen := map[tile.Kind]int{}
	out := make([]tile.Tile, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, tile.Tile{ID: fmt.Sprintf("%s_%d", k, seen[k]), Kind: k})
		seen[k]++
	}
	return out
}

func one(k tile.Kind) tile.Tile { return tile.Tile{ID: k.String() + "_x", Kind: k} }

func TestClaimFeasibility(t *testing.T) {
	h := hand(tile.BlackHorse, tile.BlackHorse, tile.BlackHorse, tile.RedSoldier)

	assert.True(t, CanPeng(h, one(tile.BlackHorse)))
	assert.True(t, CanMingGang(h, one(tile.BlackHorse)))
	assert.False(t, CanPeng(h, one(tile.RedSoldier)))
	assert.False(t, CanMingGang(h, one(tile.RedSoldier)))
}

func TestChiOptions(t *testing.T) {
	h := hand(tile.BlackChariot, tile.BlackCannon, tile.BlackCannon, tile.RedSoldier)

	opts := ChiOptions(h, one(tile.BlackHorse))
	// One chariot times two cannons.
	require.Len(t, opts, 2)
	for _, opt := range opts {
		kinds := map[tile.Kind]bool{opt[0].Kind: true, opt[1].Kind: true}
		assert.True(t, kinds[tile.BlackChariot])
		assert.True(t, kinds[tile.BlackCannon])
	}

	// Soldiers never run.
	assert.Empty(t, ChiOptions(h, one(tile.BlackSoldier)))

	// Completing tiles must come from the same fixed triple.
	assert.Empty(t, ChiOptions(hand(tile.RedChariot, tile.RedCannon), one(tile.BlackHorse)))
}

func TestChiOptionsFormValidRuns(t *testing.T) {
	h := hand(tile.RedChariot, tile.RedCannon)
	discard := one(tile.RedHorse)

	for _, opt := range ChiOptions(h, discard) {
		kinds := map[tile.Kind]bool{opt[0].Kind: true, opt[1].Kind: true, discard.Kind: true}
		matched := false
		for _, set := range tile.RunSets {
			if kinds[set[0]] && kinds[set[1]] && kinds[set[2]] {
				matched = true
			}
		}
		assert.True(t, matched)
	}
}

func TestQuadDetection(t *testing.T) {
	h := hand(tile.RedAdvisor, tile.RedAdvisor, tile.RedAdvisor, tile.BlackSoldier)

	assert.Empty(t, ConcealedQuadKinds(h, nil))

	drawn := one(tile.RedAdvisor)
	assert.Equal(t, []tile.Kind{tile.RedAdvisor}, ConcealedQuadKinds(h, &drawn))

	four := hand(tile.RedAdvisor, tile.RedAdvisor, tile.RedAdvisor, tile.RedAdvisor)
	assert.Equal(t, []tile.Kind{tile.RedAdvisor}, ConcealedQuadKinds(four, nil))

	assert.Equal(t, []tile.Kind{tile.RedAdvisor},
		UpgradeQuadKinds([]tile.Kind{tile.BlackHorse, tile.RedAdvisor}, drawn))
	assert.Empty(t, UpgradeQuadKinds([]tile.Kind{tile.BlackHorse}, drawn))
}

func TestCheckWin(t *testing.T) {
	t.Run("pair plus triplet plus run", func(t *testing.T) {
		h := hand(
			tile.RedGeneral, tile.RedGeneral,
			tile.BlackAdvisor, tile.BlackAdvisor, tile.BlackAdvisor,
			tile.RedChariot, tile.RedHorse, tile.RedCannon,
		)
		res := CheckWin(h, 0)
		require.True(t, res.Win)
		assert.Len(t, res.Pair, 2)
		assert.Len(t, res.Groups, 2)
	})

	t.Run("existing melds reduce the demand", func(t *testing.T) {
		h := hand(
			tile.RedGeneral, tile.RedGeneral,
			tile.BlackChariot, tile.BlackHorse, tile.BlackCannon,
		)
		assert.True(t, CheckWin(h, 1).Win)

		pairOnly := hand(tile.BlackSoldier, tile.BlackSoldier)
		assert.True(t, CheckWin(pairOnly, 2).Win)
	})

	t.Run("wrong tile count never wins", func(t *testing.T) {
		h := hand(tile.RedGeneral, tile.RedGeneral, tile.BlackAdvisor)
		assert.False(t, CheckWin(h, 0).Win)
		assert.False(t, CheckWin(h, 1).Win)
	})

	t.Run("no decomposition", func(t *testing.T) {
		h := hand(
			tile.RedGeneral, tile.RedGeneral,
			tile.BlackAdvisor, tile.BlackAdvisor, tile.BlackElephant,
			tile.RedChariot, tile.RedHorse, tile.BlackSoldier,
		)
		assert.False(t, CheckWin(h, 0).Win)
	})

	t.Run("two soldiers cannot form a run", func(t *testing.T) {
		h := hand(
			tile.RedGeneral, tile.RedGeneral,
			tile.BlackSoldier, tile.RedSoldier, tile.BlackSoldier,
			tile.RedChariot, tile.RedHorse, tile.RedCannon,
		)
		assert.False(t, CheckWin(h, 0).Win)
	})

	t.Run("stable under permutation", func(t *testing.T) {
		h := hand(
			tile.BlackGeneral, tile.BlackAdvisor, tile.BlackElephant,
			tile.RedSoldier, tile.RedSoldier,
			tile.RedCannon, tile.RedCannon, tile.RedCannon,
		)
		require.True(t, CheckWin(h, 0).Win)

		rng := randutil.New(7)
		for i := 0; i < 20; i++ {
			shufflePerm(h, rng)
			assert.True(t, CheckWin(h, 0).Win)
		}
	})
}

func shufflePerm(h []tile.Tile, rng *rand.Rand) {
	for i := len(h) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		h[i], h[j] = h[j], h[i]
	}
}

func TestRemoveKind(t *testing.T) {
	h := hand(tile.BlackHorse, tile.BlackHorse, tile.RedSoldier)

	kept, removed, err := RemoveKind(h, tile.BlackHorse, 2)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	assert.Len(t, removed, 2)
	for _, tl := range removed {
		assert.Equal(t, tile.BlackHorse, tl.Kind)
	}

	_, _, err = RemoveKind(h, tile.BlackHorse, 3)
	assert.Error(t, err)
}

func TestRemoveByIDs(t *testing.T) {
	h := hand(tile.BlackHorse, tile.BlackHorse, tile.RedSoldier)

	kept, removed, err := RemoveByIDs(h, h[0].ID, h[2].ID)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
	assert.Len(t, removed, 2)

	_, _, err = RemoveByIDs(h, "missing")
	assert.Error(t, err)
}
