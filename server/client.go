package server

import (
	"encoding/json"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/alimasry/lumina/i18n"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 256 * 1024
)

// Client represents a single WebSocket connection, i.e. one open editor.
type Client struct {
	ID    string
	Name  string
	Color string

	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *zap.Logger

	// The session this client is currently in (nil if not joined).
	mu      sync.Mutex
	session *Session
	closed  bool
}

// Editors get a pen name and a cursor color for presence.
var (
	penTones  = []string{"Quiet", "Bright", "Wry", "Bold", "Gentle", "Swift", "Curious", "Patient", "Witty", "Lucid"}
	penRoles  = []string{"Quill", "Scribe", "Poet", "Reader", "Critic", "Author", "Drafter", "Essayist", "Bard", "Editor"}
	penColors = []string{"#c0392b", "#2980b9", "#27ae60", "#d35400", "#8e44ad", "#16a085", "#f1c40f", "#2c3e50", "#e84393", "#00b894"}
)

func pick(options []string) string {
	return options[rand.IntN(len(options))]
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	id := uuid.NewString()
	return &Client{
		ID:     id,
		Name:   pick(penTones) + " " + pick(penRoles),
		Color:  pick(penColors),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: hub.logger.Named("client").With(zap.String("client", id)),
	}
}

func (c *Client) extendDeadline(string) error {
	return c.conn.SetReadDeadline(time.Now().Add(pongWait))
}

// ReadPump decodes frames from the connection until it fails, then takes
// the client out of its session.
func (c *Client) ReadPump() {
	defer c.disconnect()

	c.conn.SetReadLimit(maxMsgSize)
	c.extendDeadline("")
	c.conn.SetPongHandler(c.extendDeadline)

	for {
		_, data, err := c.conn.ReadMessage()
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.logger.Warn("read error", zap.Error(err))
		}
		if err != nil {
			return
		}

		var msg ClientMessage
		if json.Unmarshal(data, &msg) != nil {
			c.sendError("invalid message format")
			continue
		}
		c.route(msg)
	}
}

// disconnect leaves the current session, which closes the send channel
// once the session has forgotten the client.
func (c *Client) disconnect() {
	s := c.current()
	if s == nil || !send(s, s.leave, departure{client: c, closeSend: true}) {
		c.closeSend()
	}
	c.conn.Close()
}

func (c *Client) route(msg ClientMessage) {
	switch msg.Type {
	case MsgJoin:
		req := joinRequest{client: c, docID: msg.DocID}
		if msg.Language != "" {
			req.lang = i18n.Parse(msg.Language)
		}
		c.hub.join(req)
	case MsgOp, MsgSelect, MsgAction, MsgApply, MsgDismiss:
		s := c.current()
		if s == nil {
			c.sendError("not joined to a document")
			return
		}
		if !send(s, s.incoming, clientMessage{client: c, msg: msg}) {
			c.sendError("document closed")
		}
	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *Client) write(kind int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(kind, data)
}

// WritePump drains the send channel onto the connection and keeps it
// alive with pings. A closed channel ends the connection.
func (c *Client) WritePump() {
	keepalive := time.NewTicker(pingPeriod)
	defer keepalive.Stop()
	defer c.conn.Close()

	for {
		var err error
		select {
		case data, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, nil)
				return
			}
			err = c.write(websocket.TextMessage, data)
		case <-keepalive.C:
			err = c.write(websocket.PingMessage, nil)
		}
		if err != nil {
			c.logger.Debug("write failed", zap.Error(err))
			return
		}
	}
}

func (c *Client) sendMsg(msg ServerMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- msg.Encode():
	default:
		c.logger.Warn("send buffer full, dropping message", zap.String("type", msg.Type))
	}
}

func (c *Client) sendError(message string) {
	c.sendMsg(ServerMessage{Type: MsgError, Message: message})
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) attach(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// detach clears the session only if it is still s.
func (c *Client) detach(s *Session) {
	c.mu.Lock()
	if c.session == s {
		c.session = nil
	}
	c.mu.Unlock()
}

func (c *Client) Info() ClientInfo {
	return ClientInfo{ID: c.ID, Name: c.Name, Color: c.Color}
}
