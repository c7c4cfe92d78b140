// Package stream pushes alerts and pick snapshots to websocket clients.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"PickSentinel/internal/model"
	"PickSentinel/internal/recorder"
)

// Event types sent to clients.
const (
	TypeStatus   = "status"
	TypeHistory  = "history"
	TypeAlert    = "alert"
	TypeSnapshot = "snapshot"
)

type StatusMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type HistoryMsg struct {
	Type   string                `json:"type"`
	Alerts []recorder.AlertEvent `json:"alerts"`
}

type AlertMsg struct {
	Type  string              `json:"type"`
	Alert recorder.AlertEvent `json:"alert"`
}

type SnapshotMsg struct {
	Type  string                 `json:"type"`
	Mode  string                 `json:"mode"`
	Picks []model.ClassifiedPick `json:"picks"`
	At    time.Time              `json:"at"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

const (
	clientBuffer = 256
	pingInterval = 45 * time.Second
	readDeadline = 90 * time.Second
)

type client struct {
	conn *websocket.Conn
	out  chan any
	done chan struct{}
}

// Hub fans events out to connected clients and keeps a bounded alert
// history for newcomers.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	history []recorder.AlertEvent
	limit   int
	gauge   prometheus.Gauge
}

// NewHub creates a hub remembering up to limit alerts. gauge may be nil.
func NewHub(limit int, gauge prometheus.Gauge) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		history: make([]recorder.AlertEvent, 0, limit),
		limit:   limit,
		gauge:   gauge,
	}
}

// Seed replaces the alert history, oldest first.
func (h *Hub) Seed(alerts []recorder.AlertEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = append(h.history[:0], alerts...)
	h.trimLocked()
}

func (h *Hub) trimLocked() {
	if h.limit > 0 && len(h.history) > h.limit {
		h.history = h.history[len(h.history)-h.limit:]
	}
}

// History returns a copy of the remembered alerts, oldest first.
func (h *Hub) History() []recorder.AlertEvent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]recorder.AlertEvent, len(h.history))
	copy(out, h.history)
	return out
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishAlert remembers an alert and sends it to every client.
func (h *Hub) PublishAlert(evt recorder.AlertEvent) {
	h.mu.Lock()
	h.history = append(h.history, evt)
	h.trimLocked()
	h.mu.Unlock()
	h.broadcast(AlertMsg{Type: TypeAlert, Alert: evt})
}

// PublishSnapshot sends the latest classified picks of a mode.
func (h *Hub) PublishSnapshot(mode string, picks []model.ClassifiedPick, at time.Time) {
	h.broadcast(SnapshotMsg{Type: TypeSnapshot, Mode: mode, Picks: picks, At: at})
}

// broadcast never blocks; a client with a full buffer misses the event.
func (h *Hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- v:
		default:
		}
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	if h.gauge != nil {
		h.gauge.Set(float64(n))
	}
}

// ServeHTTP upgrades the request and streams events until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	cl := &client{conn: conn, out: make(chan any, clientBuffer), done: make(chan struct{})}

	// greeting and history are queued before the client is visible to
	// broadcast so they always arrive first
	cl.out <- StatusMsg{Type: TypeStatus, Text: "Connected"}
	cl.out <- HistoryMsg{Type: TypeHistory, Alerts: h.History()}
	h.add(cl)
	defer h.remove(cl)

	go cl.writeLoop()
	defer close(cl.done)

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	for {
		// inbound messages are ignored; reading keeps pongs flowing
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writeLoop() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()
	for {
		select {
		case v := <-c.out:
			// an event that cannot be encoded is dropped, the client stays
			data, err := json.Marshal(v)
			if err != nil {
				log.Error().Err(err).Msg("encode stream event")
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-ping.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}
