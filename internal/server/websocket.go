package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zeusync/grab/internal/core/events/bus"
	"github.com/zeusync/grab/internal/core/observability/log"
)

const (
	writeWait  = 5 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Envelope is one event as sent to telemetry clients.
type Envelope struct {
	Topic  string    `json:"topic"`
	Type   string    `json:"type"`
	Source string    `json:"source"`
	Time   time.Time `json:"time"`
	Data   any       `json:"data,omitempty"`
}

type client struct {
	conn   *websocket.Conn
	topic  string
	send   chan []byte
	closed bool // guarded by the room mutex
}

// close must be called with the room mutex held.
func (c *client) close() {
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Room groups the clients following one topic. The bus.Wildcard room follows every topic.
type Room struct {
	clients map[*client]bool
	mu      sync.Mutex
}

// Hub fans bus events out to websocket clients. It observes the bus, so it sees every
// topic without subscribing to each.
type Hub struct {
	log        log.Log
	auth       *TokenAuth
	bufferSize int

	rooms map[string]*Room
	mu    sync.Mutex

	sent    atomic.Uint64
	dropped atomic.Uint64
	clients atomic.Int64
}

var _ bus.EventBusObserver = (*Hub)(nil)

func NewHub(logger log.Log, auth *TokenAuth, bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &Hub{
		log:        logger.Named("hub"),
		auth:       auth,
		bufferSize: bufferSize,
		rooms:      make(map[string]*Room),
	}
}

func (h *Hub) getOrCreateRoom(topic string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()

	if room, exists := h.rooms[topic]; exists {
		return room
	}
	room := &Room{clients: make(map[*client]bool)}
	h.rooms[topic] = room
	return room
}

// OnPublish implements bus.EventBusObserver.
func (h *Hub) OnPublish(topic, eventType string, event bus.Event) {
	msg, err := json.Marshal(Envelope{
		Topic:  topic,
		Type:   eventType,
		Source: event.Source(),
		Time:   event.Timestamp(),
		Data:   event.Data(),
	})
	if err != nil {
		h.log.Warn("cannot encode event", log.String("type", eventType), log.Error(err))
		return
	}
	h.broadcast(topic, msg)
}

func (h *Hub) OnDelivered(string, string, int, error, time.Duration) {}

func (h *Hub) broadcast(topic string, msg []byte) {
	h.mu.Lock()
	rooms := make([]*Room, 0, 2)
	if r := h.rooms[topic]; r != nil {
		rooms = append(rooms, r)
	}
	if r := h.rooms[bus.Wildcard]; r != nil && topic != bus.Wildcard {
		rooms = append(rooms, r)
	}
	h.mu.Unlock()

	for _, room := range rooms {
		room.mu.Lock()
		for c := range room.clients {
			if c.closed {
				continue
			}
			select {
			case c.send <- msg:
				h.sent.Add(1)
			default:
				// slow client: drop the event rather than stall the scene
				h.dropped.Add(1)
			}
		}
		room.mu.Unlock()
	}
}

// handleWebSocket upgrades a client and streams the events of the topic query parameter.
func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.OnConnect(r); err != nil {
		h.log.Warn("client rejected", log.String("remote", r.RemoteAddr), log.Error(err))
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", log.String("remote", r.RemoteAddr), log.Error(err))
		return
	}

	topic := r.URL.Query().Get("topic")
	if topic == "" {
		topic = bus.Wildcard
	}
	c := &client{conn: conn, topic: topic, send: make(chan []byte, h.bufferSize)}
	room := h.getOrCreateRoom(c.topic)
	room.mu.Lock()
	room.clients[c] = true
	room.mu.Unlock()
	h.clients.Add(1)
	h.log.Info("client connected", log.String("remote", conn.RemoteAddr().String()), log.String("topic", c.topic))

	go h.writePump(c)
	h.readPump(c, room)
}

// readPump discards client messages and notices disconnects.
func (h *Hub) readPump(c *client, room *Room) {
	defer func() {
		room.mu.Lock()
		delete(room.clients, c)
		c.close()
		room.mu.Unlock()
		h.clients.Add(-1)
		_ = c.conn.Close()
		h.log.Info("client disconnected", log.String("remote", c.conn.RemoteAddr().String()))
	}()
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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

// closeAll disconnects every client.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		room.mu.Lock()
		for c := range room.clients {
			c.close()
		}
		room.mu.Unlock()
	}
}
