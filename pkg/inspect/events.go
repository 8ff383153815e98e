package inspect

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/space/pkg/signal"
)

// EventMessage is a runtime event as sent to websocket clients.
type EventMessage struct {
	Type       string    `json:"type"`
	Time       time.Time `json:"time"`
	RuntimeID  string    `json:"runtime_id,omitempty"`
	NodeID     uint64    `json:"node_id,omitempty"`
	NodeKind   string    `json:"node_kind,omitempty"`
	DurationNS int64     `json:"duration_ns,omitempty"`
	Pending    int       `json:"pending,omitempty"`
	Runs       int       `json:"runs,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// helloType is sent once a client is registered, before any event.
const helloType = "hello"

func newEventMessage(e signal.Event) EventMessage {
	msg := EventMessage{
		Type:       string(e.Type),
		Time:       e.Time,
		RuntimeID:  e.RuntimeID,
		NodeID:     e.NodeID,
		DurationNS: int64(e.Duration),
		Pending:    e.Pending,
		Runs:       e.Runs,
	}
	if e.NodeKind != 0 {
		msg.NodeKind = e.NodeKind.String()
	}
	if e.Err != nil {
		msg.Error = e.Err.Error()
	}
	return msg
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// OnEvent implements signal.Observer by broadcasting the event to every
// websocket client. It never blocks the runtime: a client whose buffer is
// full misses the event.
func (s *Server) OnEvent(_ context.Context, e signal.Event) {
	s.mu.RLock()
	n := len(s.clients)
	s.mu.RUnlock()
	if n == 0 {
		return
	}

	data, err := json.Marshal(newEventMessage(e))
	if err != nil {
		return
	}
	s.broadcast(data)
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- data:
		default:
			s.dropped++
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{conn: conn, send: make(chan []byte, s.clientBuffer)}
	hello, _ := json.Marshal(EventMessage{Type: helloType, Time: time.Now()})
	c.send <- hello

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	go s.writeLoop(c)

	// Keep the connection alive until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.removeClient(c)
}

func (s *Server) writeLoop(c *client) {
	for data := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.removeClient(c)
			for range c.send {
			}
			return
		}
	}
}

// removeClient unregisters c and closes its connection. Safe to call more
// than once.
func (s *Server) removeClient(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c]
	delete(s.clients, c)
	s.mu.Unlock()
	if !ok {
		return
	}
	close(c.send)
	c.conn.Close()
}

// Close disconnects all websocket clients.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		s.removeClient(c)
	}
}
