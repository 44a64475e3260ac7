package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kapu/multistream-checker-go/internal/constants"
	"github.com/kapu/multistream-checker-go/internal/domain"
	"github.com/kapu/multistream-checker-go/internal/metrics"
	"go.uber.org/zap"
)

// Event types pushed to browsers.
const (
	EventSnapshot    = "snapshot"
	EventRender      = "render"
	EventMessage     = "message"
	EventLoading     = "loading"
	EventLastChecked = "last_checked"
)

type Event struct {
	Type        string                  `json:"type"`
	Entries     []domain.MonitoredEntry `json:"entries,omitempty"`
	Message     *Notice                 `json:"message,omitempty"`
	Loading     *bool                   `json:"loading,omitempty"`
	LastChecked *time.Time              `json:"lastChecked,omitempty"`
}

// Notice is a transient banner. TTLMillis of 0 keeps it until replaced.
type Notice struct {
	Text      string          `json:"text"`
	Severity  domain.Severity `json:"severity"`
	TTLMillis int64           `json:"ttlMs"`
}

type hubClient struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub is the presentation sink: it keeps the latest view state and fans every change out
// to connected websocket clients.
type Hub struct {
	upgrader websocket.Upgrader
	metrics  *metrics.Registry
	logger   *zap.Logger

	mu          sync.Mutex
	clients     map[*hubClient]struct{}
	closed      bool
	entries     []domain.MonitoredEntry
	loading     bool
	lastChecked time.Time
}

func NewHub(m *metrics.Registry, logger *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		metrics: m,
		logger:  logger,
		clients: make(map[*hubClient]struct{}),
	}
}

func (h *Hub) Render(entries []domain.MonitoredEntry) {
	h.mu.Lock()
	h.entries = entries
	h.mu.Unlock()
	h.broadcast(Event{Type: EventRender, Entries: entries})
}

func (h *Hub) NotifyMessage(text string, severity domain.Severity, ttl time.Duration) {
	h.broadcast(Event{Type: EventMessage, Message: &Notice{
		Text:      text,
		Severity:  severity,
		TTLMillis: ttl.Milliseconds(),
	}})
}

func (h *Hub) SetLoading(loading bool) {
	h.mu.Lock()
	h.loading = loading
	h.mu.Unlock()
	h.broadcast(Event{Type: EventLoading, Loading: &loading})
}

func (h *Hub) SetLastChecked(ts time.Time) {
	h.mu.Lock()
	h.lastChecked = ts
	h.mu.Unlock()
	h.broadcast(Event{Type: EventLastChecked, LastChecked: &ts})
}

// Snapshot returns the state a freshly connected client needs.
func (h *Hub) Snapshot() Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.snapshotLocked()
}

func (h *Hub) snapshotLocked() Event {
	loading := h.loading
	ev := Event{Type: EventSnapshot, Entries: h.entries, Loading: &loading}
	if !h.lastChecked.IsZero() {
		ts := h.lastChecked
		ev.LastChecked = &ts
	}
	return ev
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("type", ev.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			// Slow client: drop it rather than block the dispatcher.
			h.logger.Warn("Dropping slow websocket client", zap.String("remote", c.conn.RemoteAddr().String()))
			h.removeLocked(c)
		}
	}
}

func (h *Hub) removeLocked(c *hubClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	h.metrics.IncWSClients(-1)
}

// ServeWS upgrades the request and streams events until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &hubClient{conn: conn, send: make(chan []byte, constants.WebConfig.ClientBuffer)}

	// Register and queue the snapshot under one lock so no event slips in between.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	snapshot, err := json.Marshal(h.snapshotLocked())
	if err != nil {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	c.send <- snapshot
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.IncWSClients(1)

	go h.writePump(c)
	h.readPump(c)
}

// readPump only services control frames; browsers never send data.
func (h *Hub) readPump(c *hubClient) {
	defer func() {
		h.mu.Lock()
		h.removeLocked(c)
		h.mu.Unlock()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WebConfig.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WebConfig.PongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("Websocket read error", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *hubClient) {
	ticker := time.NewTicker(constants.WebConfig.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebConfig.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WebConfig.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}
