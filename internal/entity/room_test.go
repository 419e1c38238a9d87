package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOppositeSide(t *testing.T) {
	assert.Equal(t, SideTails, OppositeSide(SideHeads))
	assert.Equal(t, SideHeads, OppositeSide(SideTails))
	assert.Empty(t, OppositeSide("edge"))
	assert.Empty(t, OppositeSide(""))
}

func TestIsValidSide(t *testing.T) {
	assert.True(t, IsValidSide(SideHeads))
	assert.True(t, IsValidSide(SideTails))
	assert.False(t, IsValidSide("HEADS"))
	assert.False(t, IsValidSide(""))
}

func TestRoomStatusPredicates(t *testing.T) {
	room := &Room{Status: StatusWaiting}
	assert.True(t, room.IsWaiting())
	assert.False(t, room.IsFull())
	assert.False(t, room.IsCompleted())

	room.Status = StatusFull
	assert.True(t, room.IsFull())

	room.Status = StatusCompleted
	assert.True(t, room.IsCompleted())
}

func TestRoomPublic(t *testing.T) {
	room := &Room{
		ID:             "room-1",
		ServerSeed:     "secret",
		ServerSeedHash: "commitment",
		ClientSeed:     "client",
	}

	public := room.Public()

	assert.Empty(t, public.ServerSeed, "raw server seed must not leak before the flip")
	assert.Equal(t, "commitment", public.ServerSeedHash)
	assert.Equal(t, "client", public.ClientSeed)
	assert.Equal(t, "secret", room.ServerSeed, "redaction must not mutate the original")
}

func TestDefaultDisplayName(t *testing.T) {
	assert.Equal(t, "player-12345678", DefaultDisplayName("123456789abc"))
	assert.Equal(t, "player-abc", DefaultDisplayName("abc"))
}
