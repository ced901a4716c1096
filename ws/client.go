package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	apperrors "wavelink/errors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 * 1024
)

// Client is one connected socket. It implements contract.Sink: Send
// enqueues a frame without ever blocking the caller, and a consumer too
// slow to drain its buffer is disconnected rather than allowed to stall
// a broadcast.
type Client struct {
	ID   string
	User string

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newClient(id, userID string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		ID:   id,
		User: userID,
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

func (c *Client) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return err
	}
	select {
	case <-c.done:
		return apperrors.ErrSlowConsumer
	case c.send <- frame:
		return nil
	default:
		c.shutdown()
		return apperrors.ErrSlowConsumer
	}
}

// shutdown closes the underlying connection, which unblocks the read
// loop and lets the gateway run its unconditional cleanup.
func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case frame := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
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

// readFrame blocks on the next inbound envelope, refreshing the pong
// deadline as keepalives arrive.
func (c *Client) readFrame() (Envelope, error) {
	var envelope Envelope
	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return envelope, err
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return envelope, fmt.Errorf("%w: malformed frame", apperrors.ErrInvalidPayload)
	}
	return envelope, nil
}

func (c *Client) configureRead() {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}
