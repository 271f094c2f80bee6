package app

import (
	"FleetTrack/internal/parser"
	"FleetTrack/internal/snapshot"
	"FleetTrack/internal/util"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait = 2 * time.Second

	// snapshots buffered per client before it is considered too slow
	defaultQueue = 16
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// client is one websocket connection. Only its writer goroutine writes to conn.
type client struct {
	conn *websocket.Conn
	send chan [][]byte
}

// Hub fans published snapshots out to websocket clients, one telemetry line per
// vehicle in the configured stream format. Broadcast never blocks on the network.
type Hub struct {
	codec   parser.Parser
	queue   int
	mu      sync.Mutex
	clients map[*client]bool
	closed  bool
}

// NewHub creates an empty hub.
func NewHub(codec parser.Parser) *Hub {
	return &Hub{codec: codec, queue: defaultQueue, clients: map[*client]bool{}}
}

// Clients is the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeWS upgrades HTTP to websocket and registers the client for broadcasts.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &client{conn: conn, send: make(chan [][]byte, h.queue)}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)
	go func() {
		defer h.drop(c, true)
		// reads only detect the peer closing
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) writePump(c *client) {
	for lines := range c.send {
		if err := send(c.conn, lines); err != nil {
			util.Component("ws").WithError(err).Debug("websocket write failed, dropping client")
			h.drop(c, true)
			_ = c.conn.Close()
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(writeWait))
	if err := c.conn.Close(); err != nil {
		util.Component("ws").WithError(err).Debug("close websocket")
	}
}

func send(c *websocket.Conn, lines [][]byte) error {
	if err := c.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	for _, l := range lines {
		if err := c.WriteMessage(websocket.TextMessage, l); err != nil {
			return err
		}
	}
	return nil
}

// drop unregisters c and closes its queue. With hard set the connection is closed
// at once, failing any write in progress; otherwise the writer flushes the queue
// and says goodbye first. Safe to call more than once.
func (h *Hub) drop(c *client, hard bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c, hard)
}

func (h *Hub) dropLocked(c *client, hard bool) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	if hard {
		_ = c.conn.Close()
	}
}

// Broadcast queues every record of snap for all clients. A client whose queue is
// full is dropped.
func (h *Hub) Broadcast(snap *snapshot.Snapshot) {
	if snap == nil {
		return
	}
	lines := make([][]byte, 0, len(snap.Vehicles))
	for _, v := range snap.Vehicles {
		line, err := parser.EncodeRecord(h.codec, v)
		if err != nil {
			util.Component("ws").WithError(err).WithField("vehicle", v.ID).Warn("encode telemetry")
			continue
		}
		lines = append(lines, []byte(line))
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- lines:
		default:
			util.Component("ws").WithField("remote", c.conn.RemoteAddr().String()).Warn("websocket client too slow, dropping")
			h.dropLocked(c, true)
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c, false)
	}
}
