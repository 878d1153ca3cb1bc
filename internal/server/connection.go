package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one WebSocket client. It is the transport half of a
// seat: the room talks back through SendEvent.
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	lobby     *Lobby

	name    string
	roomID  string
	seatIdx int
}

// NewConnection wraps an upgraded socket.
func NewConnection(conn *websocket.Conn, logger *log.Logger, lobby *Lobby) *Connection {
	ctx, cancel := context.WithCancel(context.Background())
	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		lobby:   lobby,
		seatIdx: -1,
	}
}

// Start begins handling the connection.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendEvent satisfies game.Sender: it wraps the payload in the wire
// envelope and queues it.
func (c *Connection) SendEvent(event string, payload any) {
	msg, err := NewMessage(MessageType(event), payload)
	if err != nil {
		c.logger.Error("failed to encode event", "event", event, "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

// SendMessage queues a message for the client. A full buffer drops the
// connection rather than blocking the room.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed during shutdown.
			c.logger.Debug("attempted to send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// Name returns the session display name.
func (c *Connection) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Connection) setName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
}

// Room returns the joined room id and seat index, or ("", -1).
func (c *Connection) Room() (string, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomID, c.seatIdx
}

func (c *Connection) setRoom(roomID string, seatIdx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomID = roomID
	c.seatIdx = seatIdx
}

// readPump handles incoming messages from the client.
func (c *Connection) readPump() {
	defer func() {
		c.lobby.Detach(c)
		_ = c.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage decodes one inbound frame and routes it to the lobby.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received message", "type", msg.Type, "player", c.Name())

	switch msg.Type {
	case MessageTypeSetName:
		var data SetNameData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse setName data")
			return
		}
		c.lobby.SetName(c, data.Name)

	case MessageTypeCreateRoom:
		var data CreateRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse createRoom data")
			return
		}
		c.lobby.CreateRoom(c, data)

	case MessageTypeJoinRoom:
		var data JoinRoomData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse joinRoom data")
			return
		}
		c.lobby.JoinRoom(c, data)

	case MessageTypeListRooms:
		c.lobby.SendRoomList(c)

	case MessageTypeLobbyChat:
		var data LobbyChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse lobbyChat data")
			return
		}
		c.lobby.LobbyChat(c, data.Text)

	case MessageTypeLobbyLeave:
		c.lobby.LeaveLobby(c)

	case MessageTypeGameAction:
		var data GameActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse gameAction data")
			return
		}
		c.lobby.GameAction(c, data)

	case MessageTypeGameChat:
		var data GameChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse gameChat data")
			return
		}
		c.lobby.GameChat(c, data)

	case MessageTypeRequestStart:
		var data RoomRefData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse gameRequestStart data")
			return
		}
		c.lobby.RequestStart(c, data.RoomID)

	case MessageTypeQuitRoom:
		var data RoomRefData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendLobbyError("failed to parse gameQuitRoom data")
			return
		}
		c.lobby.QuitRoom(c, data.RoomID)

	default:
		c.sendLobbyError("unknown message type: " + msg.Type.String())
	}
}

func (c *Connection) sendLobbyError(text string) {
	msg, err := NewMessage(MessageTypeLobbyError, LobbyErrorData{Text: text})
	if err != nil {
		c.logger.Error("failed to create lobby error", "error", err)
		return
	}
	_ = c.SendMessage(msg)
}
