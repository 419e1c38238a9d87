package entity

import "time"

const (
	// StatusWaiting - room created, only the creator is seated.
	StatusWaiting = "waiting"
	// StatusFull - second player joined and the client seed is set.
	StatusFull = "full"
	// StatusCompleted - a flip has been resolved; replay re-enters "full".
	StatusCompleted = "completed"
)

const (
	SideHeads = "heads"
	SideTails = "tails"
)

// RoomCodeLength - length of the human-shareable room code.
const RoomCodeLength = 6

// Room is a single wagering session between two players.
//
// ServerSeed stays secret until a flip resolves; clients only ever see
// ServerSeedHash before that. ClientSeed is set once, when the second
// player joins. Nonce counts resolved flips and only ever grows.
type Room struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	CreatorSide    string    `json:"creator_side"`
	Stake          int64     `json:"stake"`
	Pot            int64     `json:"pot"`
	Status         string    `json:"status"`
	ServerSeed     string    `json:"server_seed,omitempty"`
	ServerSeedHash string    `json:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed,omitempty"`
	Nonce          int64     `json:"nonce"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (that *Room) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Room) IsFull() bool {
	return that.Status == StatusFull
}

func (that *Room) IsCompleted() bool {
	return that.Status == StatusCompleted
}

// Public returns a copy safe to show to clients before the flip: the raw
// server seed is stripped, only its hash commitment remains.
func (that *Room) Public() *Room {
	room := *that
	room.ServerSeed = ""
	return &room
}

// OppositeSide returns the strict opposite of a binary side. Unknown input
// returns an empty string so callers can treat it as an invariant violation.
func OppositeSide(side string) string {
	switch side {
	case SideHeads:
		return SideTails
	case SideTails:
		return SideHeads
	default:
		return ""
	}
}

// IsValidSide reports whether side is one of the two literal values.
func IsValidSide(side string) bool {
	return side == SideHeads || side == SideTails
}
