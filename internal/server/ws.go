package server

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// WSServer serves the same JSON action protocol over a websocket at /ws.
// Pushed events are broadcast to every connected client; request responses
// go only to the requesting connection.
type WSServer struct {
	d        *Dispatcher
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients []*wsClient
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(msg map[string]any) {
	data, _ := json.Marshal(msg)
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewWSServer wraps d and installs itself as the event emitter.
func NewWSServer(d *Dispatcher) *WSServer {
	s := &WSServer{
		d: d,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	d.SetEmitter(s.broadcast)
	return s
}

func (s *WSServer) broadcast(msg map[string]any) {
	s.mu.Lock()
	clients := make([]*wsClient, len(s.clients))
	copy(clients, s.clients)
	s.mu.Unlock()

	msgType, _ := msg["type"].(string)
	if data, err := json.Marshal(msg); err == nil {
		log.Response(msgType, string(data))
	}
	for _, c := range clients {
		c.write(msg)
	}
}

func (s *WSServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/ws" {
		http.NotFound(w, r)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade: %v", err)
		return
	}

	client := &wsClient{conn: conn}
	s.mu.Lock()
	s.clients = append(s.clients, client)
	s.mu.Unlock()

	defer func() {
		conn.Close()
		s.mu.Lock()
		for i, c := range s.clients {
			if c == client {
				s.clients = append(s.clients[:i], s.clients[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var req map[string]any
		if err := json.Unmarshal(data, &req); err != nil {
			client.write(map[string]any{"type": "error", "message": "Invalid JSON"})
			continue
		}
		action, _ := req["action"].(string)
		log.Request(action, string(data))
		s.d.Handle(req, client.write)
	}
}
