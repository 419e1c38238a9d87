package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flipside-games/coinflip-backend/internal/entity"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrCodeTaken    = errors.New("room code already in use")
)

// RoomRepository owns the rooms table. Deleting a room cascades to its
// players and games - the room is the exclusive owner of both.
type RoomRepository interface {
	Create(ctx context.Context, room *entity.Room) error
	GetByID(ctx context.Context, id string) (*entity.Room, error)
	GetByCode(ctx context.Context, code string) (*entity.Room, error)
	Update(ctx context.Context, room *entity.Room) error
	DeleteByID(ctx context.Context, id string) error
	CodeInUse(ctx context.Context, code string) (bool, error)
}

type dbRoom struct {
	client *redis.Client
}

func NewRoomRepository(client *redis.Client) RoomRepository {
	return &dbRoom{
		client: client,
	}
}

func roomKey(id string) string        { return "room:" + id }
func roomCodeKey(code string) string  { return "room:code:" + code }
func roomPlayersKey(id string) string { return "room:" + id + ":players" }
func roomGamesKey(id string) string   { return "room:" + id + ":games" }

func (that *dbRoom) Create(ctx context.Context, room *entity.Room) error {
	// SETNX on the code index is the real uniqueness guarantee; the
	// application-level CodeInUse check only reduces retries.
	ok, err := that.client.SetNX(ctx, roomCodeKey(room.Code), room.ID, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to reserve room code: %w", err)
	}

	if !ok {
		return fmt.Errorf("%w: %s", ErrCodeTaken, room.Code)
	}

	if err = that.set(ctx, room); err != nil {
		// release the code so the id does not leak a dangling index
		that.client.Del(ctx, roomCodeKey(room.Code))
		return err
	}

	return nil
}

func (that *dbRoom) GetByID(ctx context.Context, id string) (*entity.Room, error) {
	response, err := that.client.Get(ctx, roomKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get room by id: %w", err)
	}

	var room entity.Room
	if err = json.Unmarshal([]byte(response), &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room: %w", err)
	}

	return &room, nil
}

func (that *dbRoom) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	id, err := that.client.Get(ctx, roomCodeKey(code)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve room code: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbRoom) Update(ctx context.Context, room *entity.Room) error {
	return that.set(ctx, room)
}

func (that *dbRoom) DeleteByID(ctx context.Context, id string) error {
	room, err := that.GetByID(ctx, id)
	if errors.Is(err, ErrRoomNotFound) {
		return nil
	}

	if err != nil {
		return err
	}

	// cascade: players first, then games, then the room itself
	playerIDs, err := that.client.LRange(ctx, roomPlayersKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list room players: %w", err)
	}

	for _, playerID := range playerIDs {
		response, getErr := that.client.Get(ctx, playerKey(playerID)).Result()
		if getErr == nil {
			var player entity.Player
			if json.Unmarshal([]byte(response), &player) == nil {
				that.client.Del(ctx, playerConnKey(player.ConnectionID))
			}
		}

		that.client.Del(ctx, playerKey(playerID))
	}

	gameIDs, err := that.client.LRange(ctx, roomGamesKey(id), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list room games: %w", err)
	}

	for _, gameID := range gameIDs {
		that.client.Del(ctx, gameKey(gameID))
	}

	err = that.client.Del(ctx,
		roomPlayersKey(id),
		roomGamesKey(id),
		roomCodeKey(room.Code),
		roomKey(id),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}

	return nil
}

func (that *dbRoom) CodeInUse(ctx context.Context, code string) (bool, error) {
	count, err := that.client.Exists(ctx, roomCodeKey(code)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check room code: %w", err)
	}

	return count > 0, nil
}

func (that *dbRoom) set(ctx context.Context, room *entity.Room) error {
	roomJSON, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room: %w", err)
	}

	if err = that.client.Set(ctx, roomKey(room.ID), roomJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}
