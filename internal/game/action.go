package game

import (
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/tile"
)

// ActionType tags a game action submitted through the transport layer.
type ActionType string

const (
	ActionDrawTile             ActionType = "DrawTile"
	ActionDiscardTile          ActionType = "DiscardTile"
	ActionDeclareConcealedQuad ActionType = "DeclareConcealedQuad"
	ActionUpgradeTripletToQuad ActionType = "UpgradeTripletToQuad"
	ActionClaimTriplet         ActionType = "ClaimTriplet"
	ActionClaimQuad            ActionType = "ClaimQuad"
	ActionClaimRun             ActionType = "ClaimRun"
	ActionDeclareWin           ActionType = "DeclareWin"
	ActionPassClaim            ActionType = "PassClaim"
	ActionConfirmNextRound     ActionType = "ConfirmNextRound"
	ActionRequestRematch       ActionType = "RequestRematch"
)

// Action is the decoded payload of a gameAction message.
type Action struct {
	Type ActionType `json:"type"`

	// DiscardTile
	TileID string `json:"tileId,omitempty"`

	// DeclareConcealedQuad / UpgradeTripletToQuad
	Kind *tile.Kind `json:"kind,omitempty"`

	// ClaimRun: the two hand tiles combined with the discard.
	HandTileIDs []string `json:"handTileIds,omitempty"`
}
