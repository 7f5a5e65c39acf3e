// Package realtime pushes "tasks changed" signals to WebSocket clients.
package realtime

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	EventTaskUpdated = "task-updated"
	EventJoinRoom    = "join-room"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Message is the frame format in both directions.
type Message struct {
	Event string `json:"event"`
	Data  string `json:"data,omitempty"`
}

// client is one socket. Only its writePump writes to conn; the hub hands it
// frames through send and closes send to end it.
type client struct {
	conn   *websocket.Conn
	send   chan []byte
	rooms  map[string]bool
	remote string
}

// Hub tracks every open connection and the rooms each one joined. Rooms are
// recorded but every broadcast still goes to all connections.
type Hub struct {
	clients map[*client]bool
	rooms   map[string]map[*client]bool
	mutex   sync.Mutex
	closed  bool

	upgrader websocket.Upgrader
	log      logrus.FieldLogger
}

// NewHub builds a hub. checkOrigin may be nil to accept any origin.
func NewHub(log logrus.FieldLogger, checkOrigin func(*http.Request) bool) *Hub {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	return &Hub{
		clients: make(map[*client]bool),
		rooms:   make(map[string]map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		log: log,
	}
}

// BroadcastTasksChanged queues one task-updated frame for every connection.
// It never waits on a socket: a connection whose queue is full is dropped.
func (h *Hub) BroadcastTasksChanged() {
	h.broadcast(Message{Event: EventTaskUpdated})
}

func (h *Hub) broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("marshal broadcast")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.log.WithFields(logrus.Fields{"event": "ws_slow_client", "remote": c.remote}).
				Warn("dropping connection")
			h.removeLocked(c)
		}
	}
}

// ServeWS upgrades the request and serves the connection until it drops.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		h.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	c := &client{
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]bool),
		remote: conn.RemoteAddr().String(),
	}
	if !h.add(c) {
		conn.Close()
		return
	}
	h.log.WithFields(logrus.Fields{"event": "ws_connected", "remote": c.remote}).Debug("client connected")

	go h.writePump(c)
	h.readLoop(c)

	h.remove(c)
	h.log.WithFields(logrus.Fields{"event": "ws_disconnected", "remote": c.remote}).Debug("client disconnected")
}

func (h *Hub) readLoop(c *client) {
	conn := c.conn
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithError(err).Debug("websocket read")
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Event {
		case EventJoinRoom:
			if msg.Data != "" {
				h.join(c, msg.Data)
			}
		default:
			// unknown events are ignored
		}
	}
}

// writePump is the only writer on c.conn. It sends queued frames and pings,
// and closes the connection once send is closed or a write fails.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.log.WithFields(logrus.Fields{"event": "ws_write_failed", "remote": c.remote}).
					WithError(err).Warn("dropping connection")
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

func (h *Hub) add(c *client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	return true
}

func (h *Hub) join(c *client, room string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clients[c] {
		return
	}
	c.rooms[room] = true
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*client]bool)
	}
	h.rooms[room][c] = true
}

func (h *Hub) remove(c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.removeLocked(c)
}

// removeLocked unregisters c and closes its queue. Safe to call twice.
func (h *Hub) removeLocked(c *client) {
	if !h.clients[c] {
		return
	}
	for room := range c.rooms {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.clients, c)
	close(c.send)
}

// Shutdown closes every connection and refuses new ones.
func (h *Hub) Shutdown() {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) ConnectionCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

func (h *Hub) RoomSize(room string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.rooms[room])
}
