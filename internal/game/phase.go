package game

import "encoding/json"

// Phase is the room state machine's current step. Phases form a closed
// set; every inbound action and timer expiry dispatches on the phase with
// exhaustive switches.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseWaitingForPlayers
	PhaseDealing
	PhasePlayerTurnStart
	PhasePlayerDrawn
	PhaseAwaitingDiscard
	PhaseTileDiscarded
	PhaseAwaitingClaimsResolution
	PhaseAwaitingPlayerClaimAction
	PhaseActionPendingChiChoice
	PhaseRoundOver
	PhaseGameOver
)

var phaseNames = map[Phase]string{
	PhaseLoading:                   "Loading",
	PhaseWaitingForPlayers:         "WaitingForPlayers",
	PhaseDealing:                   "Dealing",
	PhasePlayerTurnStart:           "PlayerTurnStart",
	PhasePlayerDrawn:               "PlayerDrawn",
	PhaseAwaitingDiscard:           "AwaitingDiscard",
	PhaseTileDiscarded:             "TileDiscarded",
	PhaseAwaitingClaimsResolution:  "AwaitingClaimsResolution",
	PhaseAwaitingPlayerClaimAction: "AwaitingPlayerClaimAction",
	PhaseActionPendingChiChoice:    "ActionPendingChiChoice",
	PhaseRoundOver:                 "RoundOver",
	PhaseGameOver:                  "GameOver",
}

// String returns the wire name of the phase.
func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "Unknown"
}

// MarshalJSON encodes the phase by name.
func (p Phase) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// isTurnPhase reports whether the phase belongs to the current actor's
// draw/discard window.
func (p Phase) isTurnPhase() bool {
	switch p {
	case PhasePlayerTurnStart, PhasePlayerDrawn, PhaseAwaitingDiscard:
		return true
	default:
		return false
	}
}

// inRound reports whether a round is actively being played.
func (p Phase) inRound() bool {
	switch p {
	case PhaseLoading, PhaseWaitingForPlayers, PhaseRoundOver, PhaseGameOver:
		return false
	default:
		return true
	}
}
