package server

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/game"
	"github.com/lnp8907/multi-xiangqi-mahjong-sub002/internal/randutil"
)

const (
	maxNameLen      = 15
	maxLobbyChatLen = 150
)

// Lobby is the room directory: it owns every room, tracks which socket
// sits where, and carries the lobby-wide chat channel. Directory
// operations hold a short read/write lock and never overlap with in-room
// mutation, which happens under the room's own lock.
type Lobby struct {
	mu      sync.RWMutex
	rooms   map[string]*game.Room
	members map[*Connection]bool

	logger   *log.Logger
	clock    quartz.Clock
	timerCfg game.TimerConfig
	seedFn   func() int64
}

// NewLobby builds an empty directory. seedFn supplies per-room RNG
// seeds; tests inject a fixed source for reproducible deals.
func NewLobby(logger *log.Logger, clock quartz.Clock, timerCfg game.TimerConfig, seedFn func() int64) *Lobby {
	return &Lobby{
		rooms:    make(map[string]*game.Room),
		members:  make(map[*Connection]bool),
		logger:   logger.WithPrefix("lobby"),
		clock:    clock,
		timerCfg: timerCfg,
		seedFn:   seedFn,
	}
}

// SetName validates and binds the session display name, entering the
// lobby channel.
func (l *Lobby) SetName(c *Connection, name string) {
	name = strings.TrimSpace(name)
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		c.sendLobbyError("name must be 1 to 15 characters")
		return
	}
	c.setName(name)

	l.mu.Lock()
	l.members[c] = true
	l.mu.Unlock()

	c.SendEvent(string(MessageTypeNameAccepted), NameAcceptedData{Name: name})
	l.SendRoomList(c)
}

// CreateRoom creates a room and seats the creator as host.
func (l *Lobby) CreateRoom(c *Connection, data CreateRoomData) {
	if c.Name() == "" {
		c.sendLobbyError("set a name before creating a room")
		return
	}
	if id, _ := c.Room(); id != "" {
		c.sendLobbyError("already in a room")
		return
	}
	if strings.TrimSpace(data.RoomName) == "" {
		c.sendLobbyError("room name is required")
		return
	}
	if data.TargetHumans < 1 || data.TargetHumans > 4 {
		c.sendLobbyError("targetHumans must be between 1 and 4")
		return
	}
	switch data.Rounds {
	case 1, 4, 8:
	default:
		c.sendLobbyError("rounds must be 1, 4, or 8")
		return
	}

	settings := game.Settings{
		RoomName:     data.RoomName,
		TargetHumans: data.TargetHumans,
		FillWithAI:   data.FillWithAI,
		Password:     data.Password,
		Rounds:       data.Rounds,
	}

	id := uuid.NewString()
	room := game.NewRoom(id, settings, l.timerCfg, l.clock, randutil.New(l.seedFn()), l.logger, l.removeRoom)

	l.mu.Lock()
	l.rooms[id] = room
	l.mu.Unlock()
	l.logger.Info("room created", "room", id, "name", data.RoomName, "host", c.Name())

	c.SendEvent(string(MessageTypeRoomCreated), RoomCreatedData{RoomID: id})
	l.joinExisting(c, room, data.Password)
	l.broadcastRoomList()
}

// JoinRoom seats (or re-seats) a socket in an existing room.
func (l *Lobby) JoinRoom(c *Connection, data JoinRoomData) {
	if data.PlayerName != "" {
		l.SetName(c, data.PlayerName)
	}
	if c.Name() == "" {
		c.sendLobbyError("set a name before joining a room")
		return
	}
	if id, _ := c.Room(); id != "" {
		c.sendLobbyError("already in a room")
		return
	}

	room := l.findRoom(data.RoomID)
	if room == nil {
		c.sendLobbyError("room not found")
		return
	}
	l.joinExisting(c, room, data.Password)
	l.broadcastRoomList()
}

func (l *Lobby) joinExisting(c *Connection, room *game.Room, password string) {
	seat, state, err := room.Join(c.Name(), password, c)
	if err != nil {
		c.sendLobbyError(err.Error())
		return
	}
	c.setRoom(room.ID(), seat)
	c.SendEvent(string(MessageTypeJoinedRoom), JoinedRoomData{
		GameState:      state,
		RoomID:         room.ID(),
		ClientPlayerID: seat,
	})
}

// SendRoomList replies with the current directory listing.
func (l *Lobby) SendRoomList(c *Connection) {
	c.SendEvent(string(MessageTypeLobbyRoomList), RoomListData{Rooms: l.listRooms()})
}

func (l *Lobby) listRooms() []game.Summary {
	l.mu.RLock()
	rooms := make([]*game.Room, 0, len(l.rooms))
	for _, r := range l.rooms {
		rooms = append(rooms, r)
	}
	l.mu.RUnlock()

	out := make([]game.Summary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summarize())
	}
	return out
}

func (l *Lobby) broadcastRoomList() {
	list := RoomListData{Rooms: l.listRooms()}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for c := range l.members {
		c.SendEvent(string(MessageTypeLobbyRoomList), list)
	}
}

// LobbyChat broadcasts a chat line to every lobby member.
func (l *Lobby) LobbyChat(c *Connection, text string) {
	if c.Name() == "" {
		c.sendLobbyError("set a name before chatting")
		return
	}
	if utf8.RuneCountInString(text) > maxLobbyChatLen {
		c.sendLobbyError("message too long")
		return
	}
	msg := LobbyChatMessageData{
		ID:         uuid.NewString(),
		SenderName: c.Name(),
		Text:       text,
		Timestamp:  l.clock.Now(),
		Type:       "chat",
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	for m := range l.members {
		m.SendEvent(string(MessageTypeLobbyChatMessage), msg)
	}
}

// GameAction routes an action to the sender's room.
func (l *Lobby) GameAction(c *Connection, data GameActionData) {
	room, seat := l.memberRoom(c, data.RoomID)
	if room == nil {
		return
	}
	room.HandleAction(seat, data.Action)
}

// GameChat routes a chat line to the sender's room.
func (l *Lobby) GameChat(c *Connection, data GameChatData) {
	room, seat := l.memberRoom(c, data.RoomID)
	if room == nil {
		return
	}
	room.Chat(seat, data.Text)
}

// RequestStart asks the room to begin the match (host only).
func (l *Lobby) RequestStart(c *Connection, roomID string) {
	room, seat := l.memberRoom(c, roomID)
	if room == nil {
		return
	}
	if err := room.RequestStart(seat); err != nil {
		c.SendEvent(game.EventGameError, game.GameError{Text: err.Error()})
		return
	}
	l.broadcastRoomList()
}

// QuitRoom removes the socket from its current game.
func (l *Lobby) QuitRoom(c *Connection, roomID string) {
	room, seat := l.memberRoom(c, roomID)
	if room == nil {
		return
	}
	room.Leave(seat)
	c.setRoom("", -1)
	l.broadcastRoomList()
	l.SendRoomList(c)
}

// LeaveLobby exits the lobby channel, leaving the current room too.
func (l *Lobby) LeaveLobby(c *Connection) {
	if id, seat := c.Room(); id != "" {
		if room := l.findRoom(id); room != nil {
			room.Leave(seat)
		}
		c.setRoom("", -1)
	}
	l.mu.Lock()
	delete(l.members, c)
	l.mu.Unlock()
	l.broadcastRoomList()
}

// Detach is the socket-closed path: the seat goes offline and the
// membership entry is dropped.
func (l *Lobby) Detach(c *Connection) {
	if id, seat := c.Room(); id != "" {
		if room := l.findRoom(id); room != nil {
			room.Disconnect(seat)
		}
	}
	l.mu.Lock()
	delete(l.members, c)
	l.mu.Unlock()
	l.broadcastRoomList()
}

// memberRoom resolves the sender's room and verifies the claimed id.
func (l *Lobby) memberRoom(c *Connection, roomID string) (*game.Room, int) {
	id, seat := c.Room()
	if id == "" || id != roomID {
		c.sendLobbyError("you are not in that room")
		return nil, -1
	}
	room := l.findRoom(id)
	if room == nil {
		c.sendLobbyError("room not found")
		c.setRoom("", -1)
		return nil, -1
	}
	return room, seat
}

func (l *Lobby) findRoom(id string) *game.Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rooms[id]
}

// removeRoom is the room's disposal callback.
func (l *Lobby) removeRoom(id string) {
	l.mu.Lock()
	delete(l.rooms, id)
	l.mu.Unlock()
	l.logger.Info("room removed", "room", id)
	l.broadcastRoomList()
}
