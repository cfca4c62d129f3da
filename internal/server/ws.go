package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ayusman/sholo/internal/log"
	"github.com/ayusman/sholo/internal/motion"
)

const (
	pongWait   = 30 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type quatMessage struct {
	W float64 `json:"w"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// TransformMessage is the JSON document sent to clients on every redraw.
type TransformMessage struct {
	Seq      uint64      `json:"seq"`
	Rotation quatMessage `json:"rotation"`
	Position [3]float64  `json:"position"`
	Scale    float64     `json:"scale"`
}

func newTransformMessage(seq uint64, t motion.Transform) TransformMessage {
	return TransformMessage{
		Seq: seq,
		Rotation: quatMessage{
			W: t.Rotation.W,
			X: t.Rotation.V[0],
			Y: t.Rotation.V[1],
			Z: t.Rotation.V[2],
		},
		Position: [3]float64(t.Position),
		Scale:    t.Scale,
	}
}

type client struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// Broadcaster streams transforms to WebSocket clients. It is a render sink:
// the render loop calls SetTransform and Redraw, and each Redraw queues one
// message per client without waiting on the network. A client whose queue
// is full misses that message.
type Broadcaster struct {
	writeTimeout time.Duration
	buffer       int

	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	closed  bool

	current motion.Transform
	seq     uint64
	dropped atomic.Uint64
}

// NewBroadcaster creates a broadcaster with no clients.
func NewBroadcaster(writeTimeout time.Duration, buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = 1
	}
	return &Broadcaster{
		writeTimeout: writeTimeout,
		buffer:       buffer,
		clients:      make(map[uuid.UUID]*client),
		current:      motion.Identity(),
	}
}

// Clients returns the number of connected clients.
func (b *Broadcaster) Clients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Dropped returns how many messages were skipped for slow clients.
func (b *Broadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// SetTransform implements render.Sink.
func (b *Broadcaster) SetTransform(t motion.Transform) {
	b.current = t
}

// Redraw implements render.Sink.
func (b *Broadcaster) Redraw() error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.clients) == 0 {
		return nil
	}

	b.seq++
	msg, err := json.Marshal(newTransformMessage(b.seq, b.current))
	if err != nil {
		return err
	}
	for _, c := range b.clients {
		select {
		case c.send <- msg:
		default:
			b.dropped.Add(1)
		}
	}
	return nil
}

// Close disconnects every client and rejects new ones.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, c := range b.clients {
		close(c.send)
		delete(b.clients, id)
	}
	return nil
}

// ServeHTTP handles WebSocket upgrade requests.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{id: uuid.New(), conn: conn, send: make(chan []byte, b.buffer)}
	if !b.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(b.writeTimeout))
		conn.Close()
		return
	}
	log.Debug("transform client connected", "client", c.id, "remote", r.RemoteAddr)

	go b.writePump(c)
	b.readPump(c)
}

func (b *Broadcaster) register(c *client) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return false
	}
	b.clients[c.id] = c
	return true
}

func (b *Broadcaster) unregister(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[c.id]; ok {
		close(c.send)
		delete(b.clients, c.id)
	}
}

// readPump discards client messages and detects disconnection.
func (b *Broadcaster) readPump(c *client) {
	defer func() {
		b.unregister(c)
		c.conn.Close()
		log.Debug("transform client disconnected", "client", c.id)
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump is the only goroutine writing to the connection.
func (b *Broadcaster) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(b.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
