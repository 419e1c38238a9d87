package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flipside-games/coinflip-backend/internal/entity"
)

var ErrPlayerNotFound = errors.New("player not found")

// PlayerRepository owns the players table. Players are listed in join
// order, so the creator always comes first.
type PlayerRepository interface {
	Create(ctx context.Context, player *entity.Player) error
	GetByID(ctx context.Context, id string) (*entity.Player, error)
	GetByConnectionID(ctx context.Context, connectionID string) (*entity.Player, error)
	ListByRoomID(ctx context.Context, roomID string) ([]*entity.Player, error)
	Delete(ctx context.Context, player *entity.Player) error
}

type dbPlayer struct {
	client *redis.Client
}

func NewPlayerRepository(client *redis.Client) PlayerRepository {
	return &dbPlayer{
		client: client,
	}
}

func playerKey(id string) string               { return "player:" + id }
func playerConnKey(connectionID string) string { return "player:conn:" + connectionID }

func (that *dbPlayer) Create(ctx context.Context, player *entity.Player) error {
	playerJSON, err := json.Marshal(player)
	if err != nil {
		return fmt.Errorf("failed to marshal player: %w", err)
	}

	if err = that.client.Set(ctx, playerKey(player.ID), playerJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set player: %w", err)
	}

	if err = that.client.Set(ctx, playerConnKey(player.ConnectionID), player.ID, 0).Err(); err != nil {
		return fmt.Errorf("failed to index player connection: %w", err)
	}

	// RPUSH keeps join order: the creator is always the first entry
	if err = that.client.RPush(ctx, roomPlayersKey(player.RoomID), player.ID).Err(); err != nil {
		return fmt.Errorf("failed to add player to room: %w", err)
	}

	return nil
}

func (that *dbPlayer) GetByID(ctx context.Context, id string) (*entity.Player, error) {
	response, err := that.client.Get(ctx, playerKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get player by id: %w", err)
	}

	var player entity.Player
	if err = json.Unmarshal([]byte(response), &player); err != nil {
		return nil, fmt.Errorf("failed to unmarshal player: %w", err)
	}

	return &player, nil
}

func (that *dbPlayer) GetByConnectionID(ctx context.Context, connectionID string) (*entity.Player, error) {
	id, err := that.client.Get(ctx, playerConnKey(connectionID)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrPlayerNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to resolve player connection: %w", err)
	}

	return that.GetByID(ctx, id)
}

func (that *dbPlayer) ListByRoomID(ctx context.Context, roomID string) ([]*entity.Player, error) {
	ids, err := that.client.LRange(ctx, roomPlayersKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room players: %w", err)
	}

	players := make([]*entity.Player, 0, len(ids))

	for _, id := range ids {
		player, err := that.GetByID(ctx, id)
		if errors.Is(err, ErrPlayerNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		players = append(players, player)
	}

	return players, nil
}

func (that *dbPlayer) Delete(ctx context.Context, player *entity.Player) error {
	if err := that.client.LRem(ctx, roomPlayersKey(player.RoomID), 0, player.ID).Err(); err != nil {
		return fmt.Errorf("failed to remove player from room: %w", err)
	}

	err := that.client.Del(ctx, playerKey(player.ID), playerConnKey(player.ConnectionID)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	return nil
}
