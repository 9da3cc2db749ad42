package stream

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type client struct {
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	subs map[string]struct{}
}

func (c *client) subscribe(symbol string) {
	c.mu.Lock()
	c.subs[symbol] = struct{}{}
	c.mu.Unlock()
}

func (c *client) unsubscribe(symbol string) {
	c.mu.Lock()
	delete(c.subs, symbol)
	c.mu.Unlock()
}

func (c *client) subscribed(symbol string) bool {
	c.mu.RLock()
	_, ok := c.subs[symbol]
	c.mu.RUnlock()
	return ok
}

// enqueue queues a control message, dropping it when the client is
// backed up. Only called on the connection's reader goroutine
// (handleWS and the read pump), before the queue is closed.
func (c *client) enqueue(msg outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// writePump drains the send queue and keeps the connection alive with
// pings. Exits when the read pump closes the queue.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
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
