// Package stream pushes trade and book-update events to websocket
// subscribers. Clients subscribe per symbol; a slow client loses
// messages rather than slowing the feed.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"matchbook/domain/orderbook"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

type inbound struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

type outbound struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Server fans engine events out to websocket clients.
type Server struct {
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewServer(log *zap.SugaredLogger) *Server {
	return &Server{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*client]struct{}),
	}
}

// Routes returns the handler to mount on the stream listener.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// OnTrade is wired as an engine trade callback.
func (s *Server) OnTrade(t orderbook.Trade) {
	s.broadcast(t.Symbol, outbound{Type: "trade", Symbol: t.Symbol, Data: t})
}

// OnBookUpdate is wired as an engine book-update callback.
func (s *Server) OnBookUpdate(d orderbook.DepthSnapshot) {
	s.broadcast(d.Symbol, outbound{Type: "book_update", Symbol: d.Symbol, Data: d})
}

func (s *Server) broadcast(symbol string, msg outbound) {
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Warnw("stream marshal failed", "type", msg.Type, "err", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for c := range s.clients {
		if !c.subscribed(symbol) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			// client is not keeping up; this message is lost to it
		}
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "err", err)
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		subs: make(map[string]struct{}),
	}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.log.Infow("stream client connected", "remote", conn.RemoteAddr())

	c.enqueue(outbound{Type: "connection", Status: "connected"})

	go c.writePump()
	s.readPump(c)
}

func (s *Server) readPump(c *client) {
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
		close(c.send)
		_ = c.conn.Close()
		s.log.Infow("stream client disconnected", "remote", c.conn.RemoteAddr())
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var msg inbound
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.enqueue(outbound{Type: "error", Message: "invalid JSON"})
			continue
		}
		s.handleMessage(c, msg)
	}
}

func (s *Server) handleMessage(c *client, msg inbound) {
	switch msg.Type {
	case "subscribe":
		if msg.Symbol == "" {
			c.enqueue(outbound{Type: "error", Message: "symbol is required"})
			return
		}
		c.subscribe(msg.Symbol)
		c.enqueue(outbound{Type: "subscribed", Symbol: msg.Symbol})
	case "unsubscribe":
		c.unsubscribe(msg.Symbol)
		c.enqueue(outbound{Type: "unsubscribed", Symbol: msg.Symbol})
	case "ping":
		c.enqueue(outbound{Type: "pong"})
	default:
		c.enqueue(outbound{Type: "error", Message: "unknown message type"})
	}
}
