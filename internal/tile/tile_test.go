package tile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/randutil"
)

func TestNewDeck(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)

	counts := map[Kind]int{}
	ids := map[string]bool{}
	for _, tl := range deck {
		counts[tl.Kind]++
		require.False(t, ids[tl.ID], "duplicate tile id %s", tl.ID)
		ids[tl.ID] = true
	}
	for _, k := range Kinds() {
		assert.Equal(t, 4, counts[k], "kind %s", k)
	}

	assert.Equal(t, "將_0", deck[0].ID)
	assert.Equal(t, "兵_3", deck[DeckSize-1].ID)
}

func TestShuffleDeterministic(t *testing.T) {
	a := NewDeck()
	b := NewDeck()
	Shuffle(a, randutil.New(42))
	Shuffle(b, randutil.New(42))
	assert.Equal(t, a, b)

	c := NewDeck()
	Shuffle(c, randutil.New(43))
	assert.NotEqual(t, a, c)
}

func TestKindMetadata(t *testing.T) {
	assert.Equal(t, Black, BlackGeneral.Suit())
	assert.Equal(t, Red, RedSoldier.Suit())

	// The soldiers never run.
	assert.Equal(t, 0, BlackSoldier.Group())
	assert.Equal(t, 0, RedSoldier.Group())
	_, ok := RunSetFor(BlackSoldier)
	assert.False(t, ok)

	set, ok := RunSetFor(RedHorse)
	require.True(t, ok)
	assert.Equal(t, [3]Kind{RedChariot, RedHorse, RedCannon}, set)

	// Every run set shares suit and group with order values {1,2,3}.
	for _, set := range RunSets {
		suit := set[0].Suit()
		group := set[0].Group()
		seen := map[int]bool{}
		for _, k := range set {
			assert.Equal(t, suit, k.Suit())
			assert.Equal(t, group, k.Group())
			seen[k.OrderValue()] = true
		}
		assert.Equal(t, map[int]bool{1: true, 2: true, 3: true}, seen)
	}
}

func TestVisualSort(t *testing.T) {
	hand := []Tile{
		{ID: "兵_0", Kind: RedSoldier},
		{ID: "將_0", Kind: BlackGeneral},
		{ID: "炮_0", Kind: RedCannon},
		{ID: "卒_0", Kind: BlackSoldier},
		{ID: "車_0", Kind: BlackChariot},
		{ID: "仕_0", Kind: RedAdvisor},
	}
	VisualSort(hand)

	want := []string{"將_0", "車_0", "卒_0", "仕_0", "炮_0", "兵_0"}
	got := make([]string, len(hand))
	for i, tl := range hand {
		got[i] = tl.ID
	}
	assert.Equal(t, want, got)

	// Idempotent.
	again := append([]Tile(nil), hand...)
	VisualSort(again)
	assert.Equal(t, hand, again)
}

func TestKindJSONGlyphs(t *testing.T) {
	data, err := json.Marshal(RedChariot)
	require.NoError(t, err)
	assert.Equal(t, `"俥"`, string(data))

	var k Kind
	require.NoError(t, json.Unmarshal([]byte(`"馬"`), &k))
	assert.Equal(t, BlackHorse, k)

	require.NoError(t, json.Unmarshal([]byte(`"?"`), &k))
	assert.Equal(t, Hidden, k)

	assert.Error(t, json.Unmarshal([]byte(`"x"`), &k))
}
