package game

import (
	"encoding/json"
	"sort"
)

// ClaimKind is an out-of-turn assertion on the most recent discard.
type ClaimKind int

const (
	ClaimRun ClaimKind = iota
	ClaimTriplet
	ClaimQuad
	ClaimWin
)

var claimNames = map[ClaimKind]string{
	ClaimRun:     "Run",
	ClaimTriplet: "Triplet",
	ClaimQuad:    "Quad",
	ClaimWin:     "Win",
}

// String returns the wire name of the claim kind.
func (k ClaimKind) String() string {
	if s, ok := claimNames[k]; ok {
		return s
	}
	return "Unknown"
}

// MarshalJSON encodes the claim kind by name.
func (k ClaimKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// Priority orders competing claims: Hu beats Gang/Peng beats Chi.
func (k ClaimKind) Priority() int {
	switch k {
	case ClaimWin:
		return 3
	case ClaimQuad, ClaimTriplet:
		return 2
	case ClaimRun:
		return 1
	default:
		return 0
	}
}

// Claim is one candidate action a seat may assert on the current discard.
type Claim struct {
	Kind ClaimKind `json:"kind"`
	Seat int       `json:"seat"`
}

// claimant groups a seat's candidates for queue ordering. Kinds are kept
// priority sorted so the seat's best candidate drives its queue position.
type claimant struct {
	seat  int
	kinds []ClaimKind
}

func (c *claimant) bestPriority() int {
	if len(c.kinds) == 0 {
		return 0
	}
	return c.kinds[0].Priority()
}

func (c *claimant) has(kind ClaimKind) bool {
	for _, k := range c.kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// dropKind removes one candidate kind, keeping the rest ordered.
func (c *claimant) dropKind(kind ClaimKind) {
	out := c.kinds[:0]
	for _, k := range c.kinds {
		if k != kind {
			out = append(out, k)
		}
	}
	c.kinds = out
}

// sortClaimQueue applies the global arbitration order: best priority
// descending, then seat index ascending.
func sortClaimQueue(queue []*claimant) {
	sort.SliceStable(queue, func(i, j int) bool {
		if queue[i].bestPriority() != queue[j].bestPriority() {
			return queue[i].bestPriority() > queue[j].bestPriority()
		}
		return queue[i].seat < queue[j].seat
	})
}
