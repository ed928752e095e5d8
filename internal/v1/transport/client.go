package transport

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alex-gusto/buzzer/internal/v1/game"
	"github.com/alex-gusto/buzzer/internal/v1/logging"
	"github.com/alex-gusto/buzzer/internal/v1/metrics"
	"github.com/alex-gusto/buzzer/internal/v1/types"
)

const (
	// writeWait bounds a single frame write, pings included.
	writeWait = 10 * time.Second
	// pongWait is how long a silent peer stays alive. Every pong resets it.
	pongWait = 60 * time.Second
	// pingPeriod must be shorter than pongWait or healthy peers time out.
	pingPeriod = (pongWait * 9) / 10
	// maxMessageSize caps inbound frames. The protocol is a handful of
	// small JSON messages, so anything larger is garbage.
	maxMessageSize = 1024
	// sendBufferSize is how many outbound frames may queue before the
	// connection counts as too slow and gets dropped.
	sendBufferSize = 256
)

// Incoming message types. Outgoing ones live in the game package because
// the room core emits them itself.
const (
	messageTypeRegister = "register"
	messageTypeBuzz     = "buzz"
)

var (
	errSinkClosed     = errors.New("connection closed")
	errSendBufferFull = errors.New("send buffer full")
)

// wsConnection is the slice of *websocket.Conn the client needs. Tests
// substitute a scripted mock.
type wsConnection interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
	SetWriteDeadline(t time.Time) error
	SetReadDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(appData string) error)
}

// inboundMessage is the union of every client-to-server frame.
type inboundMessage struct {
	Type       string             `json:"type"`
	Role       types.RoleType     `json:"role"`
	HostSecret string             `json:"hostSecret"`
	PlayerId   types.PlayerIdType `json:"playerId"`
}

// Client is one WebSocket connection to one room. It implements types.Sink,
// so the room broadcasts to it like to any other sink; writes are queued on
// a buffered channel and flushed by writePump.
//
// registered, role, playerId and room are only touched from readPump's
// goroutine. The mutex guards closed, which races with broadcasts.
type Client struct {
	conn       wsConnection
	dispatcher *game.Dispatcher
	roomCode   types.RoomCodeType

	registered bool
	role       types.RoleType
	playerId   types.PlayerIdType
	room       *game.Room

	mu     sync.RWMutex
	closed bool

	send chan []byte
}

func newClient(conn wsConnection, dispatcher *game.Dispatcher, roomCode types.RoomCodeType) *Client {
	return &Client{
		conn:       conn,
		dispatcher: dispatcher,
		roomCode:   roomCode,
		role:       types.RoleTypeUnknown,
		send:       make(chan []byte, sendBufferSize),
	}
}

// --- types.Sink ---

// WriteJSON queues a frame for delivery. A full buffer means the peer
// cannot keep up; the error makes the room drop this sink.
func (c *Client) WriteJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errSinkClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errSendBufferFull
	}
}

// Closed reports whether the sink can still accept writes.
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Close marks the sink dead and closes the send channel, which lets
// writePump drain queued frames, send a close frame, and drop the
// connection. Idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.send)
	return nil
}

// --- pumps ---

// readPump consumes inbound frames until the connection dies, then detaches
// from the room so an empty room can be reaped.
func (c *Client) readPump() {
	defer func() {
		if c.room != nil {
			c.room.DetachSink(c)
		}
		_ = c.Close()
		_ = c.conn.Close()
		metrics.DecConnection()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.GetLogger().Debug("WebSocket read failed",
					zap.String("room", string(c.roomCode)), zap.Error(err))
			}
			return
		}
		c.handleMessage(data)
	}
}

// writePump flushes queued frames and keeps the connection alive with
// pings. It owns all writes to the connection.
func (c *Client) writePump() {
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
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// --- protocol ---

func (c *Client) handleMessage(data []byte) {
	ctx := context.Background()

	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.WebsocketEvents.WithLabelValues("malformed", "error").Inc()
		c.sendError("Malformed message")
		return
	}

	switch msg.Type {
	case messageTypeRegister:
		c.handleRegister(ctx, msg)
	case messageTypeBuzz:
		c.handleBuzz(ctx)
	default:
		metrics.WebsocketEvents.WithLabelValues("unknown", "error").Inc()
		c.sendError("Unknown message type")
	}
}

// handleRegister binds this connection to a role. Exactly one registration
// is allowed; everything else on this connection is rejected until it
// happens.
func (c *Client) handleRegister(ctx context.Context, msg inboundMessage) {
	if c.registered {
		metrics.WebsocketEvents.WithLabelValues(messageTypeRegister, "error").Inc()
		c.sendError("Already registered")
		return
	}

	var (
		room *game.Room
		err  error
	)
	switch msg.Role {
	case types.RoleTypeHost:
		room, err = c.dispatcher.RegisterHost(c.roomCode, msg.HostSecret)
	case types.RoleTypePlayer:
		room, err = c.dispatcher.RegisterPlayer(c.roomCode, msg.PlayerId)
	default:
		metrics.WebsocketEvents.WithLabelValues(messageTypeRegister, "error").Inc()
		c.sendError("Unknown role")
		return
	}
	if err != nil {
		metrics.WebsocketEvents.WithLabelValues(messageTypeRegister, "error").Inc()
		c.sendError(game.UserMessage(err))
		return
	}

	c.registered = true
	c.role = msg.Role
	c.playerId = msg.PlayerId
	c.room = room

	metrics.WebsocketEvents.WithLabelValues(messageTypeRegister, "success").Inc()
	logging.Info(ctx, "Connection registered",
		zap.String("room", string(c.roomCode)),
		zap.String("role", string(msg.Role)))

	// Confirmation first, then the initial state frame; both ride the same
	// channel so ordering holds.
	_ = c.WriteJSON(game.NewRegisteredMessage(c.role, c.playerId))
	room.AttachSink(c, c.role, c.playerId)
	room.Broadcast(ctx)
}

func (c *Client) handleBuzz(ctx context.Context) {
	if !c.registered {
		metrics.WebsocketEvents.WithLabelValues(messageTypeBuzz, "error").Inc()
		c.sendError("Register first")
		return
	}
	if c.role != types.RoleTypePlayer {
		metrics.WebsocketEvents.WithLabelValues(messageTypeBuzz, "error").Inc()
		c.sendError("Only players can buzz")
		return
	}

	if err := c.dispatcher.Buzz(ctx, c.roomCode, c.playerId); err != nil {
		metrics.WebsocketEvents.WithLabelValues(messageTypeBuzz, "error").Inc()
		c.sendError(game.UserMessage(err))
		return
	}
	metrics.WebsocketEvents.WithLabelValues(messageTypeBuzz, "success").Inc()
}

func (c *Client) sendError(message string) {
	_ = c.WriteJSON(game.NewErrorMessage(message))
}
