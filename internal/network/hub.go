// Package network exposes the engine to browser clients over WebSocket and a small REST API.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MRamiBalles/immolife/internal/domain/finance"
	"github.com/MRamiBalles/immolife/internal/domain/game"
	"github.com/MRamiBalles/immolife/internal/domain/property"
	"github.com/MRamiBalles/immolife/internal/events"
	"github.com/MRamiBalles/immolife/internal/platform/logger"
	"github.com/MRamiBalles/immolife/internal/platform/metrics"
	"github.com/MRamiBalles/immolife/internal/savegame"
)

// Game is the engine surface the network layer drives.
type Game interface {
	State() *game.GameState
	SearchListings(query string) []property.Property

	BuyProperty(id string) error
	SellProperty(id string) error
	FindTenant(id string) (property.Tenant, error)
	RentToTenant(id string, tenant property.Tenant) error
	ApplyForLoan(bankID string, amount int64, propertyID string) (finance.Loan, error)
	GetRenovationOptions(id string) ([]property.Renovation, error)
	RenovateProperty(id, renovationID string) error

	SetTimeSpeed(speed game.TimeSpeed) error
	TogglePause()
	ForceAdvanceToNextMonth()
	StartNewGame()

	SaveGame(ctx context.Context, slot string) error
	LoadGame(ctx context.Context, slot string) error
	QuickSave(ctx context.Context) (string, error)
	GetSaveSlots(ctx context.Context) ([]savegame.SlotInfo, error)
	DeleteSave(ctx context.Context, slot string) error
}

// Server message types. Relayed engine events use their event type instead.
const (
	MsgTypeSnapshot = "snapshot"
	MsgTypeResult   = "result"
)

// Message is the envelope of every frame sent to clients.
type Message struct {
	Type    string    `json:"type"`
	At      time.Time `json:"at"`
	GameDay int       `json:"gameDay,omitempty"`
	Payload any       `json:"payload"`
}

const (
	defaultBroadcastBuffer = 256
	defaultClientBuffer    = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Same-machine UI served from another port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	mu         sync.Mutex

	game    Game
	logger  *logger.Logger
	metrics *metrics.Collector

	ioTimeout    time.Duration // bounds save and load commands
	clientBuffer int
}

// HubOption customizes a Hub.
type HubOption func(*Hub)

// WithBuffers sizes the broadcast queue and each client's send queue.
func WithBuffers(broadcast, client int) HubOption {
	return func(h *Hub) {
		if broadcast > 0 {
			h.broadcast = make(chan []byte, broadcast)
		}
		if client > 0 {
			h.clientBuffer = client
		}
	}
}

// WithIOTimeout bounds save and load commands.
func WithIOTimeout(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.ioTimeout = d
		}
	}
}

// NewHub initializes a new WebSocket Hub.
func NewHub(g Game, log *logger.Logger, m *metrics.Collector, opts ...HubOption) *Hub {
	if m == nil {
		m = metrics.Get()
	}
	h := &Hub{
		broadcast:  make(chan []byte, defaultBroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[*Client]bool),
		game:       g,
		logger:     log.With("component", "hub"),
		metrics:    m,
		ioTimeout:  10 * time.Second,

		clientBuffer: defaultClientBuffer,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the Hub's main loop to handle client connections and broadcasts.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.closed = true
				close(client.send)
				delete(h.clients, client)
				h.metrics.RecordWSConnection(-1)
			}
			h.mu.Unlock()
			h.logger.Info("WebSocket hub shutting down")
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.metrics.RecordWSConnection(1)
			h.logger.Info("WebSocket client connected", "remote", client.remote)
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.closed = true
				close(client.send)
				h.metrics.RecordWSConnection(-1)
				h.logger.Info("WebSocket client disconnected", "remote", client.remote)
			}
			h.mu.Unlock()
		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
					h.metrics.RecordWSMessage(false)
				default:
					client.closed = true
					close(client.send)
					delete(h.clients, client)
					h.metrics.RecordWSConnection(-1)
					h.metrics.RecordWSError()
					h.logger.Warn("Dropping slow WebSocket client", "remote", client.remote)
				}
			}
			h.mu.Unlock()
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Attach relays every engine event to all clients. It returns the unsubscribe func.
func (h *Hub) Attach(bus *events.Bus) func() {
	return bus.Subscribe(h.BroadcastEvent)
}

// BroadcastEvent serializes an engine event and queues it for every client.
// It never blocks the publisher; when the queue is full the event is dropped.
func (h *Hub) BroadcastEvent(e events.Event) {
	payload, err := json.Marshal(Message{Type: string(e.Type), At: e.Timestamp, GameDay: e.GameDay, Payload: e.Payload})
	if err != nil {
		h.logger.Error("Failed to serialize event for WebSocket broadcast", "type", e.Type, "error", err)
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.metrics.RecordWSError()
		h.logger.Warn("Broadcast queue full, dropping event", "type", e.Type)
	}
}

// ServeWS upgrades the request, registers the client and sends it a full snapshot.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.metrics.RecordWSError()
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	client := NewClient(h, conn)
	client.Register()
	client.sendMessage(Message{Type: MsgTypeSnapshot, At: time.Now(), Payload: h.game.State()})

	go client.WritePump()
	go client.ReadPump()
}
