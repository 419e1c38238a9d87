package entity

import "time"

// Game is an immutable record of one resolved flip. A replay appends a
// new record with the next nonce; existing records are never mutated.
//
// WinnerSide always equals Result in this two-outcome, winner-takes-pot
// design; it is kept as a separate field for compatibility with
// previously recorded games.
type Game struct {
	ID             string    `json:"id"`
	RoomID         string    `json:"room_id"`
	Result         string    `json:"result"`
	WinnerSide     string    `json:"winner_side"`
	WinnerPlayerID string    `json:"winner_player_id"`
	Pot            int64     `json:"pot"`
	ServerSeed     string    `json:"server_seed"`
	ClientSeed     string    `json:"client_seed"`
	Nonce          int64     `json:"nonce"`
	Hash           string    `json:"hash"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
	CompletedAt    time.Time `json:"completed_at"`
}
