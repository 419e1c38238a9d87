package entity

import "time"

// Player is a participant in a room, identified by an ephemeral
// connection id. At most two players sit in a room and their sides
// are always literal opposites.
type Player struct {
	ID           string    `json:"id"`
	RoomID       string    `json:"room_id"`
	ConnectionID string    `json:"connection_id"`
	DisplayName  string    `json:"display_name"`
	Side         string    `json:"side"`
	IsCreator    bool      `json:"is_creator"`
	Stake        int64     `json:"stake"`
	HasPaid      bool      `json:"has_paid"`
	JoinedAt     time.Time `json:"joined_at"`
}

const displayNameIDLength = 8

// DefaultDisplayName derives a fallback name from a connection id.
func DefaultDisplayName(connectionID string) string {
	short := connectionID
	if len(short) > displayNameIDLength {
		short = short[:displayNameIDLength]
	}
	return "player-" + short
}
