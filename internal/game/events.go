package game

import (
	"time"

	"github.com/google/uuid"
)

// Outbound event tags emitted by rooms. Lobby-level tags live in the
// server package.
const (
	EventGameStateUpdate    = "gameStateUpdate"
	EventGameChatMessage    = "gameChatMessage"
	EventGameError          = "gameError"
	EventGamePlayerLeft     = "gamePlayerLeft"
	EventActionAnnouncement = "actionAnnouncement"
)

// ChatMessage is one entry of the room's bounded message log.
type ChatMessage struct {
	ID         string    `json:"id"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"` // "chat" or "system"
}

func newChatMessage(sender, text, msgType string, now time.Time) ChatMessage {
	return ChatMessage{
		ID:         uuid.NewString(),
		SenderName: sender,
		Text:       text,
		Timestamp:  now,
		Type:       msgType,
	}
}

// Announcement is the ephemeral overlay shown when a seat declares an
// action (Chi/Peng/Gang/Hu and quads).
type Announcement struct {
	ID              string `json:"id"`
	Text            string `json:"text"`
	PlayerID        int    `json:"playerId"`
	IsMultiHuTarget bool   `json:"isMultiHuTarget,omitempty"`
}

func newAnnouncement(text string, playerID int, multiHu bool) Announcement {
	return Announcement{
		ID:              uuid.NewString(),
		Text:            text,
		PlayerID:        playerID,
		IsMultiHuTarget: multiHu,
	}
}

// PlayerLeft notifies remaining sockets that a seat left or went offline.
type PlayerLeft struct {
	PlayerID  int    `json:"playerId"`
	NewHostID *int   `json:"newHostId,omitempty"`
	Message   string `json:"message,omitempty"`
}

// GameError is a per-socket failure notice; it never mutates room state.
type GameError struct {
	Text string `json:"text"`
}

func newGameError(text string) GameError { return GameError{Text: text} }
