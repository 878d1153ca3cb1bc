package game

import (
	"sync/atomic"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// Sender delivers one outbound event to a single socket. The transport
// layer implements it; AI seats have none.
type Sender interface {
	SendEvent(event string, payload any)
}

// Seat is one of the four fixed slots in a room. It survives
// disconnection during active play; an offline human seat is driven by
// the AI policy until the player reconnects.
type Seat struct {
	Index   int
	Name    string
	IsHuman bool

	Hand  []tile.Tile
	Melds []*Meld

	IsDealer bool
	Score    int

	IsOnline bool
	Conn     Sender // nil for AI seats and offline humans
	IsHost   bool

	// Candidate claims offered on the current discard, priority sorted.
	PendingClaims []Claim

	// Single-slot reentrancy guard: one action per seat at a time.
	actionInFlight atomic.Bool
}

// beginAction takes the seat's reentrancy slot; it fails when another
// submission from the same seat is still being processed.
func (s *Seat) beginAction() bool {
	return s.actionInFlight.CompareAndSwap(false, true)
}

func (s *Seat) endAction() {
	s.actionInFlight.Store(false)
}

// handShapeCount is the seat's tile total for the hand-size invariant:
// free tiles plus the shape contribution of every meld.
func (s *Seat) handShapeCount() int {
	n := len(s.Hand)
	for _, m := range s.Melds {
		n += m.shapeTileCount()
	}
	return n
}

// openTripletKinds lists the kinds of the seat's exposed triplets, the
// candidates for an upgrade to an open quad.
func (s *Seat) openTripletKinds() []tile.Kind {
	var out []tile.Kind
	for _, m := range s.Melds {
		if m.Kind == MeldTriplet && m.IsOpen {
			out = append(out, m.Tiles[0].Kind)
		}
	}
	return out
}

// meldOfOpenTriplet finds the exposed triplet of the given kind.
func (s *Seat) meldOfOpenTriplet(kind tile.Kind) *Meld {
	for _, m := range s.Melds {
		if m.Kind == MeldTriplet && m.IsOpen && m.Tiles[0].Kind == kind {
			return m
		}
	}
	return nil
}

// send delivers an event when the seat has a live socket.
func (s *Seat) send(event string, payload any) {
	if s.Conn != nil {
		s.Conn.SendEvent(event, payload)
	}
}

// needsAIDrive reports whether the room must act for this seat.
func (s *Seat) needsAIDrive() bool {
	return !s.IsHuman || !s.IsOnline
}
