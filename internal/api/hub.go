package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"wardrobe/internal/domain"
	"wardrobe/internal/events"
	"wardrobe/internal/logging"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 512
	wsSendBuffer     = 64
	hubBroadcastSize = 256
)

// StreamMessage is one lifecycle event as pushed to websocket clients.
type StreamMessage struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// eventParties are the payload fields that decide who may see an event.
type eventParties struct {
	RenterID int64 `json:"renter_id"`
	OwnerID  int64 `json:"owner_id"`
}

type envelope struct {
	data    []byte
	parties eventParties
}

type wsClient struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	principal domain.Principal
}

// canSee limits renters and owners to their own rentals; arbitrators see
// every event.
func (c *wsClient) canSee(p eventParties) bool {
	switch v := c.principal.(type) {
	case domain.Arbitrator:
		return true
	case domain.Renter:
		return v.ID == p.RenterID
	case domain.Owner:
		return v.ID == p.OwnerID
	default:
		return false
	}
}

// Hub fans lifecycle events out to connected websocket clients.
type Hub struct {
	clients    map[*wsClient]bool
	broadcast  chan envelope
	register   chan *wsClient
	unregister chan *wsClient
	done       chan struct{}
	mu         sync.RWMutex
	log        *zerolog.Logger
}

func NewHub(logger *zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*wsClient]bool),
		broadcast:  make(chan envelope, hubBroadcastSize),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		done:       make(chan struct{}),
		log:        logging.Component(logger, "ws_hub"),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("total", total).Msg("websocket client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Debug().Int("total", total).Msg("websocket client disconnected")

		case env := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if !client.canSee(env.parties) {
					continue
				}
				select {
				case client.send <- env.data:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe streams every lifecycle event from bus.
func (h *Hub) Subscribe(bus *events.EventBus) {
	bus.SubscribeAll(h.HandleEvent)
}

// HandleEvent queues event for delivery. A full queue drops the event.
func (h *Hub) HandleEvent(event *events.Event) error {
	var parties eventParties
	if err := json.Unmarshal(event.Payload, &parties); err != nil {
		return err
	}
	data, err := json.Marshal(StreamMessage{
		Type:      event.Type,
		Payload:   json.RawMessage(event.Payload),
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		return err
	}

	select {
	case h.broadcast <- envelope{data: data, parties: parties}:
	default:
		h.log.Warn().Str("event_type", event.Type).Msg("broadcast queue full, dropping event")
	}
	return nil
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *wsClient) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Clients authenticate with a bearer token, not cookies.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *HTTPServer) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.svc.Hub == nil {
		writeError(w, http.StatusNotFound, domain.KindNotFound, "event stream is not enabled")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &wsClient{hub: s.svc.Hub, conn: conn, send: make(chan []byte, wsSendBuffer), principal: p}
	if !client.hub.add(client) {
		_ = conn.Close()
		return
	}
	go client.writePump()
	go client.readPump()
}

// readPump only drains control frames; clients do not send messages.
func (c *wsClient) readPump() {
	defer func() {
		c.hub.remove(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
