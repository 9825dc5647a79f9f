package chat

import (
	"encoding/json"
	"time"

	"github.com/example/storefront/pkg/models"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	maxFrameSize = 8 * 1024
)

// Client is one live socket subscribed to one room. Reads parse inbound
// frames and hand persistence to the worker; writes drain the bounded send
// queue.
type Client struct {
	hub     *Hub
	persist *Persister
	conn    *websocket.Conn
	logger  *zap.Logger

	roomID string
	userID string
	email  string
	role   models.Role

	send chan []byte
	once chan struct{} // closed exactly once on teardown
}

func NewClient(hub *Hub, persist *Persister, conn *websocket.Conn, logger *zap.Logger,
	roomID, userID, email string, role models.Role, sendQueueSize int) *Client {
	if sendQueueSize < 1 {
		sendQueueSize = 64
	}
	return &Client{
		hub:     hub,
		persist: persist,
		conn:    conn,
		logger:  logger,
		roomID:  roomID,
		userID:  userID,
		email:   email,
		role:    role,
		send:    make(chan []byte, sendQueueSize),
		once:    make(chan struct{}),
	}
}

// Run joins the room group, queues the history frame for this connection
// only, and pumps until the socket dies.
func (c *Client) Run(history HistoryEvent) {
	c.hub.join(c.roomID, c)

	if payload, err := json.Marshal(history); err == nil {
		c.enqueue(payload)
	}

	go c.writePump()
	c.readPump()
}

func (c *Client) enqueue(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSlow() {
	select {
	case <-c.once:
	default:
		close(c.once)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c.roomID, c)
		c.closeSlow()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Chat connection closed unexpectedly",
					zap.String("room_id", c.roomID), zap.Error(err))
			}
			return
		}

		var frame InboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.logger.Warn("Dropping malformed chat frame", zap.String("room_id", c.roomID))
			continue
		}

		switch frame.Type {
		case TypeChatMessage:
			c.handleChatMessage(frame.Message)
		case TypeMarkAsRead:
			c.handleMarkAsRead()
		default:
			c.logger.Warn("Unknown chat frame type",
				zap.String("type", frame.Type), zap.String("room_id", c.roomID))
		}
	}
}

// handleChatMessage persists first, then broadcasts, so delivery order within
// this connection matches persistence order.
func (c *Client) handleChatMessage(content string) {
	if content == "" {
		return
	}

	msg, err := c.persist.SaveMessage(c.roomID, c.userID, content)
	if err != nil {
		c.logger.Error("Failed to persist chat message",
			zap.String("room_id", c.roomID), zap.Error(err))
		return
	}

	event := MessageEvent{
		Type:       TypeChatMessage,
		Message:    msg.Content,
		Sender:     c.email,
		SenderRole: string(c.role),
		MessageID:  msg.ID,
		Seq:        msg.Seq,
		Timestamp:  msg.CreatedAt.Format(time.RFC3339),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	c.hub.Broadcast(c.roomID, payload)
}

// handleMarkAsRead flips the counterpart's messages to read. No event is
// broadcast; clients wanting live unread counts re-fetch.
func (c *Client) handleMarkAsRead() {
	if err := c.persist.MarkRead(c.roomID, c.userID); err != nil {
		c.logger.Error("Failed to mark messages read",
			zap.String("room_id", c.roomID), zap.Error(err))
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.once:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
