package websocket

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_Membership(t *testing.T) {
	t.Run("unregister drops the connection and its room subscription", func(t *testing.T) {
		hub := newTestHub()

		hub.Register("conn-1", nil)
		hub.Register("conn-2", nil)
		hub.Join("room-1", "conn-1")
		hub.Join("room-1", "conn-2")

		hub.Unregister("conn-1")

		assert.NotContains(t, hub.connections, "conn-1")
		assert.NotContains(t, hub.connRooms, "conn-1")
		assert.NotContains(t, hub.rooms["room-1"], "conn-1")
		assert.Contains(t, hub.rooms["room-1"], "conn-2")
	})

	t.Run("a connection subscribed to several rooms leaves all of them", func(t *testing.T) {
		hub := newTestHub()

		hub.Register("conn-1", nil)
		hub.Register("conn-2", nil)
		hub.Join("room-1", "conn-1")
		hub.Join("room-2", "conn-1")
		hub.Join("room-2", "conn-2")

		// joining a second room must not drop the first subscription
		assert.Contains(t, hub.rooms["room-1"], "conn-1")
		assert.Contains(t, hub.rooms["room-2"], "conn-1")

		hub.Unregister("conn-1")

		assert.NotContains(t, hub.rooms, "room-1")
		assert.NotContains(t, hub.rooms["room-2"], "conn-1")
		assert.Contains(t, hub.rooms["room-2"], "conn-2")
	})

	t.Run("a room with no subscribers left is removed", func(t *testing.T) {
		hub := newTestHub()

		hub.Register("conn-1", nil)
		hub.Join("room-1", "conn-1")
		hub.Unregister("conn-1")

		assert.NotContains(t, hub.rooms, "room-1")
	})

	t.Run("unregistering an unknown connection is a no-op", func(t *testing.T) {
		hub := newTestHub()

		assert.NotPanics(t, func() { hub.Unregister("conn-unknown") })
	})
}

func TestHub_SilentNoOps(t *testing.T) {
	hub := newTestHub()

	// nobody is registered or subscribed; both deliveries must be silent
	assert.NotPanics(t, func() {
		hub.SendTo("conn-unknown", "event", nil)
		hub.Broadcast("room-empty", "event", nil)
	})
}
