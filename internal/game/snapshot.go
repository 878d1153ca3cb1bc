package game

import (
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// DiscardedTile is one entry of the discard pile, newest first. The
// discarder index rides along so clients can attribute every throw.
type DiscardedTile struct {
	Tile      tile.Tile `json:"tile"`
	Discarder int       `json:"discarder"`
}

// MeldState is the snapshot form of a meld. Concealed quads held by other
// seats are visible as an opaque group: the designation shows, the tile
// kinds do not.
type MeldState struct {
	ID            string      `json:"id"`
	Kind          MeldKind    `json:"kind"`
	Tiles         []tile.Tile `json:"tiles"`
	IsOpen        bool        `json:"isOpen"`
	FromSeat      int         `json:"fromSeat"`
	ClaimedTileID string      `json:"claimedTileId,omitempty"`
}

// SeatState is the per-seat slice of a snapshot.
type SeatState struct {
	Index         int         `json:"index"`
	Name          string      `json:"name"`
	IsHuman       bool        `json:"isHuman"`
	IsDealer      bool        `json:"isDealer"`
	IsHost        bool        `json:"isHost"`
	IsOnline      bool        `json:"isOnline"`
	Score         int         `json:"score"`
	Hand          []tile.Tile `json:"hand"`
	Melds         []MeldState `json:"melds"`
	PendingClaims []Claim     `json:"pendingClaims,omitempty"`
}

// GameState is the full room snapshot broadcast after every mutation. It
// is built per receiver: hands that do not belong to the receiver are
// replaced tile-for-tile with placeholders except at round and match end.
type GameState struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Phase    Phase  `json:"phase"`

	Seats []SeatState `json:"players"`

	DeckCount          int             `json:"deckCount"`
	DiscardPile        []DiscardedTile `json:"discardPile"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	DealerIndex        int             `json:"dealerIndex"`
	LastDiscarderIndex int             `json:"lastDiscarderIndex"`
	LastDiscardedTile  *tile.Tile      `json:"lastDiscardedTile,omitempty"`
	LastDrawnTile      *tile.Tile      `json:"lastDrawnTile,omitempty"`
	TurnNumber         int             `json:"turnNumber"`

	MessageLog []ChatMessage `json:"messageLog"`

	WinnerID               *int   `json:"winnerId,omitempty"`
	WinType                string `json:"winType,omitempty"`
	WinningTileID          string `json:"winningTileId,omitempty"`
	WinningTileDiscarderID *int   `json:"winningTileDiscarderId,omitempty"`
	IsDrawGame             bool   `json:"isDrawGame"`

	ChiOptions                [][2]tile.Tile `json:"chiOptions,omitempty"`
	PlayerMakingClaimDecision *int           `json:"playerMakingClaimDecision,omitempty"`

	ActionTimer     int    `json:"actionTimer"`
	ActionTimerType string `json:"actionTimerType,omitempty"`

	CurrentRound       int   `json:"currentRound"`
	NumberOfRounds     int   `json:"numberOfRounds"`
	MatchOver          bool  `json:"matchOver"`
	NextRoundCountdown int   `json:"nextRoundCountdown"`
	HumanPlayersReady  []int `json:"humanPlayersReadyForNextRound"`
}

// snapshotFor builds the deep-copied, redacted snapshot for one receiving
// seat. A negative receiver produces a fully redacted observer view. Must
// be called with the room lock held.
func (r *Room) snapshotFor(receiver int) GameState {
	revealAll := r.phase == PhaseRoundOver || r.phase == PhaseGameOver

	seats := make([]SeatState, 0, len(r.seats))
	for _, s := range r.seats {
		own := s.Index == receiver
		seats = append(seats, SeatState{
			Index:         s.Index,
			Name:          s.Name,
			IsHuman:       s.IsHuman,
			IsDealer:      s.IsDealer,
			IsHost:        s.IsHost,
			IsOnline:      s.IsOnline,
			Score:         s.Score,
			Hand:          copyHand(s.Hand, own || revealAll),
			Melds:         copyMelds(s.Melds, own || revealAll),
			PendingClaims: copyClaims(s.PendingClaims, own),
		})
	}

	gs := GameState{
		RoomID:             r.id,
		RoomName:           r.settings.RoomName,
		Phase:              r.phase,
		Seats:              seats,
		DeckCount:          len(r.deck),
		DiscardPile:        append([]DiscardedTile(nil), r.discards...),
		CurrentPlayerIndex: r.currentPlayerIndex,
		DealerIndex:        r.dealerIndex,
		LastDiscarderIndex: r.lastDiscarderIndex,
		TurnNumber:         r.turnNumber,
		MessageLog:         append([]ChatMessage(nil), r.messageLog...),
		WinType:            r.winType,
		WinningTileID:      r.winningTileID,
		IsDrawGame:         r.isDrawGame,
		ActionTimer:        r.actionTimer,
		ActionTimerType:    r.actionTimerRole.String(),
		CurrentRound:       r.currentRound,
		NumberOfRounds:     r.settings.Rounds,
		MatchOver:          r.matchOver,
		NextRoundCountdown: r.nextRoundCountdown(),
		HumanPlayersReady:  r.readySeats(),
	}

	if r.lastDiscarded != nil {
		t := *r.lastDiscarded
		gs.LastDiscardedTile = &t
	}
	if r.lastDrawn != nil && (receiver == r.currentPlayerIndex || revealAll) {
		t := *r.lastDrawn
		gs.LastDrawnTile = &t
	}
	if r.winner != nil {
		id := *r.winner
		gs.WinnerID = &id
	}
	if r.winningDiscarder != nil {
		id := *r.winningDiscarder
		gs.WinningTileDiscarderID = &id
	}
	if r.claimDecider != nil {
		id := *r.claimDecider
		gs.PlayerMakingClaimDecision = &id
		if id == receiver && len(r.chiOptions) > 0 {
			gs.ChiOptions = append([][2]tile.Tile(nil), r.chiOptions...)
		}
	}

	return gs
}

// copyHand deep-copies a hand, substituting placeholders when the
// receiver may not see it.
func copyHand(hand []tile.Tile, visible bool) []tile.Tile {
	out := make([]tile.Tile, len(hand))
	for i, t := range hand {
		if visible {
			out[i] = t
		} else {
			out[i] = tile.HiddenTile()
		}
	}
	return out
}

// copyMelds deep-copies melds. Exposed melds are always visible; a
// concealed quad held by another seat keeps its designation but hides the
// tile kinds.
func copyMelds(melds []*Meld, ownerView bool) []MeldState {
	out := make([]MeldState, 0, len(melds))
	for _, m := range melds {
		ms := MeldState{
			ID:            m.ID,
			Kind:          m.Kind,
			IsOpen:        m.IsOpen,
			FromSeat:      m.FromSeat,
			ClaimedTileID: m.ClaimedTileID,
		}
		ms.Tiles = make([]tile.Tile, len(m.Tiles))
		for i, t := range m.Tiles {
			if m.IsOpen || ownerView {
				ms.Tiles[i] = t
			} else {
				ms.Tiles[i] = tile.HiddenTile()
			}
		}
		out = append(out, ms)
	}
	return out
}

func copyClaims(claims []Claim, own bool) []Claim {
	if !own || len(claims) == 0 {
		return nil
	}
	return append([]Claim(nil), claims...)
}
