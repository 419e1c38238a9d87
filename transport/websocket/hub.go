package websocket

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
)

// Event is the server-to-client message envelope.
type Event struct {
	Event   string `json:"event"`
	Payload any    `json:"payload,omitempty"`
}

// connection wraps a websocket conn with a write lock; gorilla conns
// support one concurrent writer only.
type connection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (that *connection) write(event Event) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.conn.WriteJSON(event)
}

// Hub is the pub/sub channel keyed by room id that the coordinator
// publishes to. Sends to unknown connections and broadcasts to empty
// rooms are silent no-ops.
type Hub struct {
	logger *slog.Logger

	mu          sync.RWMutex
	connections map[string]*connection
	rooms       map[string]map[string]struct{}
	connRooms   map[string]map[string]struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,

		connections: make(map[string]*connection),
		rooms:       make(map[string]map[string]struct{}),
		connRooms:   make(map[string]map[string]struct{}),
	}
}

// Register adds a live connection under its id.
func (that *Hub) Register(connectionID string, conn *websocket.Conn) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.connections[connectionID] = &connection{conn: conn}
}

// Unregister drops a connection and every room subscription it holds.
func (that *Hub) Unregister(connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	for roomID := range that.connRooms[connectionID] {
		delete(that.rooms[roomID], connectionID)
		if len(that.rooms[roomID]) == 0 {
			delete(that.rooms, roomID)
		}
	}

	delete(that.connRooms, connectionID)
	delete(that.connections, connectionID)
}

// Join subscribes a connection to a room's broadcasts. A connection may
// subscribe to several rooms over its lifetime.
func (that *Hub) Join(roomID, connectionID string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.rooms[roomID]; !ok {
		that.rooms[roomID] = make(map[string]struct{})
	}

	that.rooms[roomID][connectionID] = struct{}{}

	if _, ok := that.connRooms[connectionID]; !ok {
		that.connRooms[connectionID] = make(map[string]struct{})
	}

	that.connRooms[connectionID][roomID] = struct{}{}
}

// SendTo delivers one event to one connection.
func (that *Hub) SendTo(connectionID, event string, payload any) {
	that.mu.RLock()
	conn, ok := that.connections[connectionID]
	that.mu.RUnlock()

	if !ok {
		return
	}

	if err := conn.write(Event{Event: event, Payload: payload}); err != nil {
		that.logger.Error("failed to send message", "connectionID", connectionID, "event", event, "error", err)
	}
}

// Broadcast delivers one event to every connection subscribed to a room.
func (that *Hub) Broadcast(roomID, event string, payload any) {
	that.mu.RLock()
	subscribers := make([]string, 0, len(that.rooms[roomID]))
	for connectionID := range that.rooms[roomID] {
		subscribers = append(subscribers, connectionID)
	}
	that.mu.RUnlock()

	for _, connectionID := range subscribers {
		that.SendTo(connectionID, event, payload)
	}
}
