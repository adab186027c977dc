package ws

import (
	"time"

	websocketdto "fleet-dispatch/internal/dispatch-service/core/domain/websocket_dto"

	"github.com/gorilla/websocket"
)

const (
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	writeWait    = 10 * time.Second
	egressSize   = 64
)

type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	egress chan websocketdto.Event
	userId string
}

func NewClient(conn *websocket.Conn, hub *Hub, userId string) *Client {
	return &Client{
		conn:   conn,
		hub:    hub,
		egress: make(chan websocketdto.Event, egressSize),
		userId: userId,
	}
}

// ReadMessage only keeps the connection alive; consoles do not send commands.
func (c *Client) ReadMessage() {
	defer c.hub.RemoveClient(c)

	c.conn.SetReadLimit(1024)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Action("readMessage").Warn("connection closed unexpectedly", "user_id", c.userId, "error", err)
			}
			return
		}
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-c.egress:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
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
