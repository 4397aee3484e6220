// Package livesync pushes report change events to connected clients so
// open list and dashboard views refresh without polling.
package livesync

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/htmmed/qctrack/internal/common"
	"github.com/htmmed/qctrack/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ReportHub fans report events out to WebSocket subscribers.
type ReportHub struct {
	clients    map[*hubClient]bool
	broadcast  chan models.ReportEvent
	register   chan *hubClient
	unregister chan *hubClient
	done       chan struct{}
	mu         sync.RWMutex
	logger     *common.Logger
}

type hubClient struct {
	hub  *ReportHub
	conn *websocket.Conn
	send chan []byte
}

// NewReportHub creates a hub. Call Run in a goroutine before serving.
func NewReportHub(logger *common.Logger) *ReportHub {
	return &ReportHub{
		clients:    make(map[*hubClient]bool),
		broadcast:  make(chan models.ReportEvent, 256),
		register:   make(chan *hubClient),
		unregister: make(chan *hubClient),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run is the hub's event loop.
func (h *ReportHub) Run() {
	for {
		select {
		case <-h.done:
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Debug().Int("clients", h.ClientCount()).Msg("Live sync client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.logger.Debug().Int("clients", h.ClientCount()).Msg("Live sync client disconnected")

		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Failed to marshal report event")
				continue
			}

			h.mu.RLock()
			var slow []*hubClient
			for client := range h.clients {
				select {
				case client.send <- data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					delete(h.clients, c)
					close(c.send)
				}
				h.mu.Unlock()
			}
		}
	}
}

// Stop signals the event loop to exit.
func (h *ReportHub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Broadcast queues an event for all subscribers. Drops the event when
// the queue is full rather than blocking a write path.
func (h *ReportHub) Broadcast(event models.ReportEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn().Str("type", event.Type).Msg("Live sync queue full, dropping event")
	}
}

// ReportCreated broadcasts a creation event carrying the full record.
func (h *ReportHub) ReportCreated(r *models.DefectReport, actor string) {
	h.Broadcast(models.ReportEvent{Type: models.EventReportCreated, ReportID: r.ID, Report: r, Actor: actor})
}

// ReportUpdated broadcasts an update event carrying the full record.
func (h *ReportHub) ReportUpdated(r *models.DefectReport, actor string) {
	h.Broadcast(models.ReportEvent{Type: models.EventReportUpdated, ReportID: r.ID, Report: r, Actor: actor})
}

// ReportDeleted broadcasts a deletion event, id only.
func (h *ReportHub) ReportDeleted(id, actor string) {
	h.Broadcast(models.ReportEvent{Type: models.EventReportDeleted, ReportID: id, Actor: actor})
}

// ReportsBatchUpdated broadcasts one event for a whole batch.
func (h *ReportHub) ReportsBatchUpdated(ids []string, actor string) {
	h.Broadcast(models.ReportEvent{Type: models.EventReportBatchUpdated, ReportIDs: ids, Actor: actor})
}

// ServeWS upgrades the connection and registers the client.
func (h *ReportHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &hubClient{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.register <- client

	go client.writePump()
	go client.readPump()
}

// ClientCount returns the number of connected clients.
func (h *ReportHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (c *hubClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection, mainly to detect close.
func (c *hubClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
