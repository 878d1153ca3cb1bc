package server

import (
	"encoding/json"
	"time"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/game"
)

// MessageType tags every frame on the wire.
type MessageType string

func (t MessageType) String() string { return string(t) }

// Client → server tags.
const (
	MessageTypeSetName      MessageType = "setName"
	MessageTypeCreateRoom   MessageType = "createRoom"
	MessageTypeJoinRoom     MessageType = "joinRoom"
	MessageTypeListRooms    MessageType = "listRooms"
	MessageTypeLobbyChat    MessageType = "lobbyChat"
	MessageTypeLobbyLeave   MessageType = "lobbyLeave"
	MessageTypeGameAction   MessageType = "gameAction"
	MessageTypeGameChat     MessageType = "gameChat"
	MessageTypeRequestStart MessageType = "gameRequestStart"
	MessageTypeQuitRoom     MessageType = "gameQuitRoom"
)

// Server → client tags. Room-scoped tags (gameStateUpdate and friends)
// are defined next to their payloads in the game package.
const (
	MessageTypeLobbyRoomList    MessageType = "lobbyRoomList"
	MessageTypeLobbyChatMessage MessageType = "lobbyChatMessage"
	MessageTypeLobbyError       MessageType = "lobbyError"
	MessageTypeJoinedRoom       MessageType = "joinedRoom"
	MessageTypeNameAccepted     MessageType = "nameAccepted"
	MessageTypeRoomCreated      MessageType = "roomCreated"
)

// Message is the wire envelope.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage wraps a payload in the envelope.
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → server payloads.

type SetNameData struct {
	Name string `json:"name"`
}

type CreateRoomData struct {
	RoomName     string `json:"roomName"`
	TargetHumans int    `json:"targetHumans"`
	FillWithAI   bool   `json:"fillWithAI"`
	Password     string `json:"password,omitempty"`
	Rounds       int    `json:"rounds"`
}

type JoinRoomData struct {
	RoomID     string `json:"roomId"`
	Password   string `json:"password,omitempty"`
	PlayerName string `json:"playerName,omitempty"`
}

type LobbyChatData struct {
	Text string `json:"text"`
}

type GameActionData struct {
	RoomID string      `json:"roomId"`
	Action game.Action `json:"action"`
}

type GameChatData struct {
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

type RoomRefData struct {
	RoomID string `json:"roomId"`
}

// Server → client payloads.

type RoomListData struct {
	Rooms []game.Summary `json:"rooms"`
}

type LobbyChatMessageData struct {
	ID         string    `json:"id"`
	SenderName string    `json:"senderName"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
	Type       string    `json:"type"`
}

type LobbyErrorData struct {
	Text string `json:"text"`
}

type JoinedRoomData struct {
	GameState      game.GameState `json:"gameState"`
	RoomID         string         `json:"roomId"`
	ClientPlayerID int            `json:"clientPlayerId"`
}

type NameAcceptedData struct {
	Name string `json:"name"`
}

type RoomCreatedData struct {
	RoomID string `json:"roomId"`
}
