package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/devconnect/realtime/pkg/core"
	"github.com/devconnect/realtime/pkg/model"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Deadline for the store-backed part of one inbound event.
	opTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

type Gateway struct {
	registry *core.Registry
	index    *core.Index
	router   *core.Router
	typing   *core.TypingRelay
	validate *validator.Validate
	log      *slog.Logger
}

// client pairs one websocket with its registered core connection.
type client struct {
	gw   *Gateway
	ws   *websocket.Conn
	conn *core.Connection
}

// serveWs authenticates the handshake, upgrades and starts the pumps. A bad
// token is refused before any resource is allocated.
func (gw *Gateway) serveWs(w http.ResponseWriter, r *http.Request) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		// Query param fallback for browser websocket clients.
		tokenString = r.URL.Query().Get("token")
	}
	if tokenString == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	conn, err := gw.registry.Authenticate(r.Context(), tokenString)
	if err != nil {
		gw.log.Warn("handshake refused", "error", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		gw.log.Error("upgrade failed", "error", err)
		return
	}

	gw.registry.Register(conn)
	gw.log.Info("client connected", "user", conn.User.Username, "conn", conn.ID)

	c := &client{gw: gw, ws: ws, conn: conn}
	go c.writePump()
	go c.readPump()
}

// readPump pumps inbound events from the websocket into the core.
func (c *client) readPump() {
	defer func() {
		c.gw.registry.Remove(c.conn.ID)
		c.ws.Close()
		c.gw.log.Info("client disconnected", "user", c.conn.User.Username, "conn", c.conn.ID)
	}()
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error { c.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.gw.log.Warn("read error", "conn", c.conn.ID, "error", err)
			}
			return
		}
		c.dispatch(raw)
	}
}

// writePump pumps core deliveries out to the websocket.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()
	for {
		select {
		case payload := <-c.conn.Outbound():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-c.conn.Done():
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) dispatch(raw []byte) {
	var env model.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.sendError("malformed event")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	switch env.Event {
	case model.EventJoinChannel:
		var p model.JoinPayload
		if !c.decode(env.Data, &p) {
			return
		}
		c.handleJoin(ctx, p.ChannelID)

	case model.EventLeaveChannel:
		var p model.LeavePayload
		if !c.decode(env.Data, &p) {
			return
		}
		c.gw.index.Leave(c.conn.ID, p.ChannelID)

	case model.EventSendMessage:
		var p model.SendPayload
		if !c.decode(env.Data, &p) {
			return
		}
		if _, err := c.gw.router.Send(ctx, c.conn.ID, p.ChannelID, p.Content); err != nil {
			c.gw.log.Warn("send rejected", "conn", c.conn.ID, "channel", p.ChannelID, "error", err)
			c.sendError("failed to send message")
		}

	case model.EventAddReaction:
		var p model.ReactPayload
		if !c.decode(env.Data, &p) {
			return
		}
		if _, err := c.gw.router.AddReaction(ctx, c.conn.ID, p.ChannelID, p.MessageID, p.Emoji); err != nil {
			c.gw.log.Warn("reaction rejected", "conn", c.conn.ID, "message", p.MessageID, "error", err)
			c.sendError("failed to add reaction")
		}

	case model.EventTyping:
		var p model.TypingPayload
		if !c.decode(env.Data, &p) {
			return
		}
		c.gw.typing.Typing(ctx, c.conn.ID, p.ChannelID)

	case model.EventStopTyping:
		var p model.TypingPayload
		if !c.decode(env.Data, &p) {
			return
		}
		c.gw.typing.StopTyping(ctx, c.conn.ID, p.ChannelID)

	default:
		c.sendError("unknown event")
	}
}

// handleJoin subscribes and replies with the channel's recent history.
func (c *client) handleJoin(ctx context.Context, channelID string) {
	if err := c.gw.index.Join(ctx, c.conn, channelID); err != nil {
		if errors.Is(err, core.ErrNotAMember) {
			c.sendError("you are not a member of this channel")
		} else {
			c.gw.log.Error("join failed", "conn", c.conn.ID, "channel", channelID, "error", err)
			c.sendError("failed to join channel")
		}
		return
	}

	history, err := c.gw.router.History(ctx, channelID, 0)
	if err != nil {
		c.gw.log.Error("history fetch failed", "channel", channelID, "error", err)
		c.sendError("failed to load channel history")
		return
	}
	c.send(model.EventChannelMessages, model.ChannelHistory{ChannelID: channelID, Messages: history})
}

func (c *client) decode(data json.RawMessage, payload any) bool {
	if err := json.Unmarshal(data, payload); err != nil {
		c.sendError("malformed payload")
		return false
	}
	if err := c.gw.validate.Struct(payload); err != nil {
		c.sendError("invalid payload")
		return false
	}
	return true
}

func (c *client) send(event string, data any) {
	payload, err := model.NewEnvelope(event, data)
	if err != nil {
		c.gw.log.Error("encode envelope", "event", event, "error", err)
		return
	}
	c.conn.Deliver(payload)
}

func (c *client) sendError(message string) {
	c.send(model.EventError, model.ErrorNotice{Message: message})
}
