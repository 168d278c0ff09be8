package feed

import (
	"sync"
	"time"

	"familyeats/backend/internal/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

// WebSocketClient implements Client over a gorilla websocket. Reviewers
// only listen; anything they send is discarded.
type WebSocketClient struct {
	id         string
	ReviewerID string
	conn       *websocket.Conn
	hub        *Hub
	send       chan models.ModerationEvent
	closeOnce  sync.Once
	log        *zap.Logger
}

func NewWebSocketClient(hub *Hub, conn *websocket.Conn, reviewerID string, log *zap.Logger) *WebSocketClient {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebSocketClient{
		id:         uuid.New().String(),
		ReviewerID: reviewerID,
		conn:       conn,
		hub:        hub,
		send:       make(chan models.ModerationEvent, sendBuffer),
		log:        log,
	}
}

func (c *WebSocketClient) ID() string { return c.id }

func (c *WebSocketClient) Events() chan<- models.ModerationEvent { return c.send }

func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the connection.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.send) })
}

func (c *WebSocketClient) readPump() {
	defer func() {
		select {
		case c.hub.UnregisterCh <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("feed connection closed unexpectedly", zap.String("reviewer_id", c.ReviewerID), zap.Error(err))
			}
			return
		}
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(ev); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
