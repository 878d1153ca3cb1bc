// Package rules implements the tile combinatorics for xiangqi-mahjong:
// claim feasibility, Chi option discovery, and the winning-hand search.
// Every function is pure; callers own all state.
package rules

import (
	"fmt"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// CountKind returns how many tiles of the given kind appear in the hand.
func CountKind(hand []tile.Tile, kind tile.Kind) int {
	n := 0
	for _, t := range hand {
		if t.Kind == kind {
			n++
		}
	}
	return n
}

// CanPeng reports whether the hand can claim a triplet on the discard.
func CanPeng(hand []tile.Tile, discard tile.Tile) bool {
	return CountKind(hand, discard.Kind) >= 2
}

// CanMingGang reports whether the hand can claim an open quad on the
// discard.
func CanMingGang(hand []tile.Tile, discard tile.Tile) bool {
	return CountKind(hand, discard.Kind) >= 3
}

// ChiOptions returns every unordered pair of hand tiles that combines with
// the discard into one of the four predefined runs. Seat eligibility (only
// the seat clockwise of the discarder may Chi) is the room's concern, not
// this function's.
func ChiOptions(hand []tile.Tile, discard tile.Tile) [][2]tile.Tile {
	set, ok := tile.RunSetFor(discard.Kind)
	if !ok {
		return nil
	}

	var needA, needB tile.Kind
	found := false
	for i, k := range set {
		if k == discard.Kind {
			needA = set[(i+1)%3]
			needB = set[(i+2)%3]
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	var as, bs []tile.Tile
	for _, t := range hand {
		switch t.Kind {
		case needA:
			as = append(as, t)
		case needB:
			bs = append(bs, t)
		}
	}

	var out [][2]tile.Tile
	for _, a := range as {
		for _, b := range bs {
			out = append(out, [2]tile.Tile{a, b})
		}
	}
	return out
}

// ConcealedQuadKinds returns the kinds for which the effective hand (hand
// plus the drawn tile, when non-nil) holds all four copies.
func ConcealedQuadKinds(hand []tile.Tile, drawn *tile.Tile) []tile.Kind {
	counts := make(map[tile.Kind]int, len(hand))
	for _, t := range hand {
		counts[t.Kind]++
	}
	if drawn != nil {
		counts[drawn.Kind]++
	}

	var out []tile.Kind
	for _, k := range tile.Kinds() {
		if counts[k] >= 4 {
			out = append(out, k)
		}
	}
	return out
}

// UpgradeQuadKinds returns the kinds whose exposed triplet can be upgraded
// to an open quad with the drawn tile. exposedTriplets lists the kinds of
// the seat's open triplet melds.
func UpgradeQuadKinds(exposedTriplets []tile.Kind, drawn tile.Tile) []tile.Kind {
	for _, k := range exposedTriplets {
		if k == drawn.Kind {
			return []tile.Kind{k}
		}
	}
	return nil
}

// WinResult is the outcome of a winning-hand search. When Win is true,
// Pair holds the pair and Groups the complete groups found among the free
// tiles; any successful decomposition suffices.
type WinResult struct {
	Win    bool
	Pair   []tile.Tile
	Groups [][]tile.Tile
}

// CheckWin searches the free tiles for a winning decomposition: exactly
// one pair plus enough complete groups (triplet or run) to reach two in
// total with the already-materialised melds. A quad meld still counts as a
// single group, the conventional reduction. The search is a depth-first
// partition over at most eight tiles, trying triplets by count before the
// four fixed run triples.
func CheckWin(hand []tile.Tile, existingMelds int) WinResult {
	need := 2 - existingMelds
	if need < 0 {
		return WinResult{}
	}
	if len(hand) != 2+3*need {
		return WinResult{}
	}

	counts := make(map[tile.Kind]int, len(hand))
	for _, t := range hand {
		counts[t.Kind]++
	}

	for _, pairKind := range tile.Kinds() {
		if counts[pairKind] < 2 {
			continue
		}
		counts[pairKind] -= 2
		if groups, ok := formGroups(counts, need); ok {
			counts[pairKind] += 2
			return WinResult{
				Win:    true,
				Pair:   takeTiles(hand, map[tile.Kind]int{pairKind: 2}),
				Groups: materialiseGroups(hand, pairKind, groups),
			}
		}
		counts[pairKind] += 2
	}
	return WinResult{}
}

// groupSpec describes one found group as kind counts: a triplet is
// {k:3}, a run {a:1,b:1,c:1}.
type groupSpec map[tile.Kind]int

// formGroups recursively extracts `need` complete groups from the counts.
func formGroups(counts map[tile.Kind]int, need int) ([]groupSpec, bool) {
	if need == 0 {
		for _, c := range counts {
			if c != 0 {
				return nil, false
			}
		}
		return nil, true
	}

	// Triplet first, by count.
	for _, k := range tile.Kinds() {
		if counts[k] < 3 {
			continue
		}
		counts[k] -= 3
		if rest, ok := formGroups(counts, need-1); ok {
			counts[k] += 3
			return append([]groupSpec{{k: 3}}, rest...), true
		}
		counts[k] += 3
	}

	// Then the four fixed run triples.
	for _, set := range tile.RunSets {
		if counts[set[0]] < 1 || counts[set[1]] < 1 || counts[set[2]] < 1 {
			continue
		}
		counts[set[0]]--
		counts[set[1]]--
		counts[set[2]]--
		if rest, ok := formGroups(counts, need-1); ok {
			counts[set[0]]++
			counts[set[1]]++
			counts[set[2]]++
			spec := groupSpec{set[0]: 1, set[1]: 1, set[2]: 1}
			return append([]groupSpec{spec}, rest...), true
		}
		counts[set[0]]++
		counts[set[1]]++
		counts[set[2]]++
	}

	return nil, false
}

// materialiseGroups maps the abstract decomposition back onto concrete
// tiles, skipping the two tiles consumed by the pair.
func materialiseGroups(hand []tile.Tile, pairKind tile.Kind, groups []groupSpec) [][]tile.Tile {
	remaining := make([]tile.Tile, len(hand))
	copy(remaining, hand)

	pairLeft := 2
	filtered := remaining[:0]
	for _, t := range remaining {
		if t.Kind == pairKind && pairLeft > 0 {
			pairLeft--
			continue
		}
		filtered = append(filtered, t)
	}
	remaining = filtered

	out := make([][]tile.Tile, 0, len(groups))
	for _, spec := range groups {
		group := takeTiles(remaining, spec)
		out = append(out, group)
		remaining = removeByID(remaining, group)
	}
	return out
}

// takeTiles picks concrete tiles matching the kind counts in spec.
func takeTiles(pool []tile.Tile, spec map[tile.Kind]int) []tile.Tile {
	want := make(map[tile.Kind]int, len(spec))
	for k, n := range spec {
		want[k] = n
	}
	var out []tile.Tile
	for _, t := range pool {
		if want[t.Kind] > 0 {
			want[t.Kind]--
			out = append(out, t)
		}
	}
	return out
}

func removeByID(pool []tile.Tile, gone []tile.Tile) []tile.Tile {
	goneIDs := make(map[string]bool, len(gone))
	for _, t := range gone {
		goneIDs[t.ID] = true
	}
	out := pool[:0]
	for _, t := range pool {
		if !goneIDs[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

// RemoveKind removes n tiles of the given kind from the hand, returning
// the shrunk hand and the removed tiles. It fails when fewer than n exist,
// leaving the input untouched. Callers use it to materialise melds without
// duplicating tile identities.
func RemoveKind(hand []tile.Tile, kind tile.Kind, n int) ([]tile.Tile, []tile.Tile, error) {
	if CountKind(hand, kind) < n {
		return nil, nil, fmt.Errorf("hand holds fewer than %d of %s", n, kind)
	}
	kept := make([]tile.Tile, 0, len(hand)-n)
	removed := make([]tile.Tile, 0, n)
	for _, t := range hand {
		if t.Kind == kind && len(removed) < n {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed, nil
}

// RemoveByIDs removes the identified tiles from the hand, failing when any
// id is absent.
func RemoveByIDs(hand []tile.Tile, ids ...string) ([]tile.Tile, []tile.Tile, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	kept := make([]tile.Tile, 0, len(hand))
	removed := make([]tile.Tile, 0, len(ids))
	for _, t := range hand {
		if want[t.ID] {
			delete(want, t.ID)
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	if len(want) != 0 {
		return nil, nil, fmt.Errorf("hand is missing %d of the requested tiles", len(want))
	}
	return kept, removed, nil
}
