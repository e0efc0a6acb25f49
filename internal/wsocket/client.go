package wsocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client wraps one duplex connection bound to a user. Outbound events go
// through the buffered send channel so delivery never blocks the hub. The
// send channel is never closed: shutdown is signalled through done, so a
// publisher racing a teardown can never hit a closed channel.
type Client struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func NewClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
}

// trySend queues an event for the write pump. A full buffer means the peer
// stopped draining; report failure so the hub can drop the connection.
// Encoding failures are logged but not treated as a dead peer.
func (c *Client) trySend(event interface{}) bool {
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode websocket event")
		return true
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close signals the write pump to shut the connection down. Safe to call
// from any teardown path, any number of times.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
	})
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. Exits when Close is signalled or a write fails.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
