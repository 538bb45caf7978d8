package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"wardrobe-chat-service/internal/models"
)

// Client wraps one websocket connection. The mutex serializes writes, since
// room broadcasts and read-loop acks come from different goroutines.
type Client struct {
	conn *websocket.Conn
	mu   sync.Mutex
	Info ConnInfo
}

// NewClient wraps a connection.
func NewClient(conn *websocket.Conn, info ConnInfo) *Client {
	return &Client{conn: conn, Info: info}
}

// WriteEvent sends one server event frame.
func (c *Client) WriteEvent(event models.ServerEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Close closes the underlying connection.
func (c *Client) Close() {
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
