// Package memory provides pure in-memory implementations of the
// repository contracts so the state machine and coordinator can be
// tested without a running Redis.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/flipside-games/coinflip-backend/internal/entity"
	"github.com/flipside-games/coinflip-backend/internal/repository"
)

// Store holds all three tables behind one mutex; its accessors satisfy
// the repository interfaces.
type Store struct {
	mu sync.RWMutex

	rooms         map[string]*entity.Room
	roomsByCode   map[string]string
	players       map[string]*entity.Player
	playersByConn map[string]string
	roomPlayers   map[string][]string
	games         map[string]*entity.Game
	roomGames     map[string][]string
}

func New() *Store {
	return &Store{
		rooms:         make(map[string]*entity.Room),
		roomsByCode:   make(map[string]string),
		players:       make(map[string]*entity.Player),
		playersByConn: make(map[string]string),
		roomPlayers:   make(map[string][]string),
		games:         make(map[string]*entity.Game),
		roomGames:     make(map[string][]string),
	}
}

func (that *Store) Rooms() repository.RoomRepository     { return &roomStore{that} }
func (that *Store) Players() repository.PlayerRepository { return &playerStore{that} }
func (that *Store) Games() repository.GameRepository     { return &gameStore{that} }

type roomStore struct{ store *Store }

func (that *roomStore) Create(_ context.Context, room *entity.Room) error {
	s := that.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.roomsByCode[room.Code]; taken {
		return fmt.Errorf("%w: %s", repository.ErrCodeTaken, room.Code)
	}

	copied := *room
	s.rooms[room.ID] = &copied
	s.roomsByCode[room.Code] = room.ID

	return nil
}

func (that *roomStore) GetByID(_ context.Context, id string) (*entity.Room, error) {
	s := that.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil, repository.ErrRoomNotFound
	}

	copied := *room

	return &copied, nil
}

func (that *roomStore) GetByCode(ctx context.Context, code string) (*entity.Room, error) {
	s := that.store
	s.mu.RLock()
	id, ok := s.roomsByCode[code]
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrRoomNotFound
	}

	return that.GetByID(ctx, id)
}

func (that *roomStore) Update(_ context.Context, room *entity.Room) error {
	s := that.store
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *room
	s.rooms[room.ID] = &copied

	return nil
}

func (that *roomStore) DeleteByID(_ context.Context, id string) error {
	s := that.store
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[id]
	if !ok {
		return nil
	}

	for _, playerID := range s.roomPlayers[id] {
		if player, exists := s.players[playerID]; exists {
			delete(s.playersByConn, player.ConnectionID)
		}
		delete(s.players, playerID)
	}

	for _, gameID := range s.roomGames[id] {
		delete(s.games, gameID)
	}

	delete(s.roomPlayers, id)
	delete(s.roomGames, id)
	delete(s.roomsByCode, room.Code)
	delete(s.rooms, id)

	return nil
}

func (that *roomStore) CodeInUse(_ context.Context, code string) (bool, error) {
	s := that.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.roomsByCode[code]

	return taken, nil
}

type playerStore struct{ store *Store }

func (that *playerStore) Create(_ context.Context, player *entity.Player) error {
	s := that.store
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *player
	s.players[player.ID] = &copied
	s.playersByConn[player.ConnectionID] = player.ID
	s.roomPlayers[player.RoomID] = append(s.roomPlayers[player.RoomID], player.ID)

	return nil
}

func (that *playerStore) GetByID(_ context.Context, id string) (*entity.Player, error) {
	s := that.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, ok := s.players[id]
	if !ok {
		return nil, repository.ErrPlayerNotFound
	}

	copied := *player

	return &copied, nil
}

func (that *playerStore) GetByConnectionID(ctx context.Context, connectionID string) (*entity.Player, error) {
	s := that.store
	s.mu.RLock()
	id, ok := s.playersByConn[connectionID]
	s.mu.RUnlock()

	if !ok {
		return nil, repository.ErrPlayerNotFound
	}

	return that.GetByID(ctx, id)
}

func (that *playerStore) ListByRoomID(_ context.Context, roomID string) ([]*entity.Player, error) {
	s := that.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.roomPlayers[roomID]
	players := make([]*entity.Player, 0, len(ids))

	for _, id := range ids {
		if player, ok := s.players[id]; ok {
			copied := *player
			players = append(players, &copied)
		}
	}

	return players, nil
}

func (that *playerStore) Delete(_ context.Context, player *entity.Player) error {
	s := that.store
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.roomPlayers[player.RoomID]
	filtered := ids[:0]
	for _, id := range ids {
		if id != player.ID {
			filtered = append(filtered, id)
		}
	}
	s.roomPlayers[player.RoomID] = filtered

	delete(s.playersByConn, player.ConnectionID)
	delete(s.players, player.ID)

	return nil
}

type gameStore struct{ store *Store }

func (that *gameStore) Create(_ context.Context, game *entity.Game) error {
	s := that.store
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *game
	s.games[game.ID] = &copied
	s.roomGames[game.RoomID] = append(s.roomGames[game.RoomID], game.ID)

	return nil
}

func (that *gameStore) GetByID(_ context.Context, id string) (*entity.Game, error) {
	s := that.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	game, ok := s.games[id]
	if !ok {
		return nil, repository.ErrGameNotFound
	}

	copied := *game

	return &copied, nil
}

func (that *gameStore) ListByRoomID(_ context.Context, roomID string) ([]*entity.Game, error) {
	s := that.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.roomGames[roomID]
	games := make([]*entity.Game, 0, len(ids))

	for _, id := range ids {
		if game, ok := s.games[id]; ok {
			copied := *game
			games = append(games, &copied)
		}
	}

	return games, nil
}
