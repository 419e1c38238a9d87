package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/flipside-games/coinflip-backend/internal/entity"
)

var ErrGameNotFound = errors.New("game not found")

// GameRepository owns the games table. Game records are append-only: a
// replay creates a new record, nothing is ever updated in place.
type GameRepository interface {
	Create(ctx context.Context, game *entity.Game) error
	GetByID(ctx context.Context, id string) (*entity.Game, error)
	ListByRoomID(ctx context.Context, roomID string) ([]*entity.Game, error)
}

type dbGame struct {
	client *redis.Client
}

func NewGameRepository(client *redis.Client) GameRepository {
	return &dbGame{
		client: client,
	}
}

func gameKey(id string) string { return "game:" + id }

func (that *dbGame) Create(ctx context.Context, game *entity.Game) error {
	gameJSON, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	if err = that.client.Set(ctx, gameKey(game.ID), gameJSON, 0).Err(); err != nil {
		return fmt.Errorf("failed to set game: %w", err)
	}

	if err = that.client.RPush(ctx, roomGamesKey(game.RoomID), game.ID).Err(); err != nil {
		return fmt.Errorf("failed to add game to room: %w", err)
	}

	return nil
}

func (that *dbGame) GetByID(ctx context.Context, id string) (*entity.Game, error) {
	response, err := that.client.Get(ctx, gameKey(id)).Result()

	if errors.Is(err, redis.Nil) {
		return nil, ErrGameNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game by id: %w", err)
	}

	var game entity.Game
	if err = json.Unmarshal([]byte(response), &game); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}

	return &game, nil
}

func (that *dbGame) ListByRoomID(ctx context.Context, roomID string) ([]*entity.Game, error) {
	ids, err := that.client.LRange(ctx, roomGamesKey(roomID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list room games: %w", err)
	}

	games := make([]*entity.Game, 0, len(ids))

	for _, id := range ids {
		game, err := that.GetByID(ctx, id)
		if errors.Is(err, ErrGameNotFound) {
			continue
		}

		if err != nil {
			return nil, err
		}

		games = append(games, game)
	}

	return games, nil
}
