package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/flipside-games/coinflip-backend/internal/apperror"
	"github.com/flipside-games/coinflip-backend/internal/entity"
	"github.com/flipside-games/coinflip-backend/internal/fairness"
	"github.com/flipside-games/coinflip-backend/internal/repository"
)

const (
	roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// maxCodeAttempts - safety valve for the code-generation loop. With
	// 36^6 possible codes a collision is astronomically unlikely, so
	// exhausting this budget signals something is badly wrong.
	maxCodeAttempts = 5
)

// FlipResult is everything the boundary layer needs to broadcast one
// resolved flip.
type FlipResult struct {
	Result       string                       `json:"result"`
	WinnerSide   string                       `json:"winner_side"`
	Game         *entity.Game                 `json:"game"`
	Verification fairness.VerificationPayload `json:"verification"`
	WinnerPlayer *entity.Player               `json:"winner_player"`
	Room         *entity.Room                 `json:"room"`
	Players      []*entity.Player             `json:"players"`
	IsReplay     bool                         `json:"is_replay"`
}

// RoomManager is the room/game state machine. It is the sole writer of
// rooms, players, and games; all mutation goes through its operations.
type RoomManager struct {
	logger *slog.Logger

	roomRepo   repository.RoomRepository
	playerRepo repository.PlayerRepository
	gameRepo   repository.GameRepository

	stake int64

	// roomLocks serializes every mutation per room id: a nonce is never
	// double-incremented by interleaved flips and a waiting room never
	// seats two joiners. Different rooms do not block each other.
	roomLocks sync.Map
}

func NewRoomManager(
	logger *slog.Logger,
	roomRepo repository.RoomRepository,
	playerRepo repository.PlayerRepository,
	gameRepo repository.GameRepository,
	stake int64,
) *RoomManager {
	return &RoomManager{
		logger: logger,

		roomRepo:   roomRepo,
		playerRepo: playerRepo,
		gameRepo:   gameRepo,

		stake: stake,
	}
}

// CreateRoom opens a new room in "waiting" status with the caller seated
// as its creator. A fresh server seed is committed at creation; only its
// hash is shown to clients until a flip resolves.
func (that *RoomManager) CreateRoom(ctx context.Context, side, displayName, connectionID string) (*entity.Room, *entity.Player, error) {
	log := that.logger.With("method", "CreateRoom")

	if !entity.IsValidSide(side) {
		return nil, nil, fmt.Errorf("%w: side must be %q or %q", apperror.ErrValidation, entity.SideHeads, entity.SideTails)
	}

	serverSeed, err := fairness.GenerateServerSeed()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate server seed: %w", err)
	}

	now := time.Now().UTC()

	room := &entity.Room{
		ID:             uuid.NewString(),
		CreatorSide:    side,
		Stake:          that.stake,
		Pot:            that.stake * 2,
		Status:         entity.StatusWaiting,
		ServerSeed:     serverSeed,
		ServerSeedHash: fairness.HashServerSeed(serverSeed),
		Nonce:          0,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err = that.createWithUniqueCode(ctx, room); err != nil {
		return nil, nil, err
	}

	player := that.newPlayer(room, side, displayName, connectionID, true)

	if err = that.playerRepo.Create(ctx, player); err != nil {
		// roll back the room so no orphan lingers behind a reserved code
		if delErr := that.roomRepo.DeleteByID(ctx, room.ID); delErr != nil {
			log.Error("failed to roll back room after player write failure", "roomID", room.ID, "error", delErr)
		}

		return nil, nil, fmt.Errorf("%w: failed to create player: %v", apperror.ErrPersistence, err)
	}

	log.Info("room created", "roomID", room.ID, "code", room.Code, "side", side)

	return room, player, nil
}

// JoinRoom seats a second player in a waiting room, on the side strictly
// opposite the creator's, and sets the client seed that locks in the
// fairness commitment. A room that is not in "waiting" status is
// indistinguishable from a nonexistent one: only one joiner is accepted.
func (that *RoomManager) JoinRoom(ctx context.Context, code, displayName, connectionID string) (*entity.Room, *entity.Player, error) {
	log := that.logger.With("method", "JoinRoom", "code", code)

	room, err := that.roomRepo.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get room by code: %v", apperror.ErrPersistence, err)
	}

	// joins race each other and flips on the same room; all mutations
	// for one room id are serialized behind its lock
	unlock := that.lockRoom(room.ID)
	defer unlock()

	// re-read under the lock: the room may have filled or been deleted
	// while the code was being resolved
	room, err = that.roomRepo.GetByID(ctx, room.ID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get room: %v", apperror.ErrPersistence, err)
	}

	if !room.IsWaiting() {
		return nil, nil, apperror.ErrRoomNotFound
	}

	players, err := that.playerRepo.ListByRoomID(ctx, room.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list players: %v", apperror.ErrPersistence, err)
	}

	if len(players) >= 2 {
		return nil, nil, apperror.ErrRoomFull
	}

	side := entity.OppositeSide(room.CreatorSide)
	if side == "" || side == room.CreatorSide {
		log.Error("joiner side computation violated the opposite-sides invariant",
			"roomID", room.ID, "creatorSide", room.CreatorSide)
		return nil, nil, apperror.ErrInvalidGameState
	}

	clientSeed, err := fairness.GenerateClientSeed()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to generate client seed: %w", err)
	}

	room.ClientSeed = clientSeed
	room.Status = entity.StatusFull
	room.UpdatedAt = time.Now().UTC()

	if err = that.roomRepo.Update(ctx, room); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to update room: %v", apperror.ErrPersistence, err)
	}

	player := that.newPlayer(room, side, displayName, connectionID, false)

	if err = that.playerRepo.Create(ctx, player); err != nil {
		// revert so the room is not stuck in "full" with an empty seat
		room.ClientSeed = ""
		room.Status = entity.StatusWaiting
		room.UpdatedAt = time.Now().UTC()

		if revertErr := that.roomRepo.Update(ctx, room); revertErr != nil {
			log.Error("failed to revert room after player write failure", "roomID", room.ID, "error", revertErr)
		}

		return nil, nil, fmt.Errorf("%w: failed to create player: %v", apperror.ErrPersistence, err)
	}

	log.Info("player joined room", "roomID", room.ID, "side", side)

	return room, player, nil
}

// FlipCoin resolves one flip for the room. Calling it on a "completed"
// room is the replay path: the room resets to "full" in place, keeping
// both seeds and both players, and the nonce keeps counting up.
//
// Flips for one room are strictly serialized; concurrent calls queue
// behind each other and each resolves a distinct nonce.
func (that *RoomManager) FlipCoin(ctx context.Context, roomID string) (*FlipResult, error) {
	unlock := that.lockRoom(roomID)
	defer unlock()

	log := that.logger.With("method", "FlipCoin", "roomID", roomID)

	room, err := that.roomRepo.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get room: %v", apperror.ErrPersistence, err)
	}

	if !room.IsFull() && !room.IsCompleted() {
		return nil, apperror.ErrRoomNotReady
	}

	isReplay := room.IsCompleted()
	if isReplay {
		// same players, same seeds, new round
		room.Status = entity.StatusFull
		room.UpdatedAt = time.Now().UTC()

		if err = that.roomRepo.Update(ctx, room); err != nil {
			return nil, fmt.Errorf("%w: failed to reset room for replay: %v", apperror.ErrPersistence, err)
		}
	}

	if room.ClientSeed == "" {
		return nil, apperror.ErrMissingClientSeed
	}

	nonce := room.Nonce + 1
	result := fairness.ComputeResult(room.ServerSeed, room.ClientSeed, nonce)

	players, err := that.playerRepo.ListByRoomID(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list players: %v", apperror.ErrPersistence, err)
	}

	if len(players) != 2 {
		log.Error("flip attempted without exactly two players", "count", len(players))
		return nil, apperror.ErrInvalidPlayerCount
	}

	var winner *entity.Player
	for _, player := range players {
		if player.Side == result.Side {
			winner = player
			break
		}
	}

	if winner == nil {
		log.Error("no player holds the winning side", "result", result.Side)
		return nil, apperror.ErrNoWinnerDetermined
	}

	now := time.Now().UTC()

	game := &entity.Game{
		ID:             uuid.NewString(),
		RoomID:         room.ID,
		Result:         result.Side,
		WinnerSide:     result.Side,
		WinnerPlayerID: winner.ID,
		Pot:            room.Pot,
		ServerSeed:     room.ServerSeed,
		ClientSeed:     room.ClientSeed,
		Nonce:          nonce,
		Hash:           result.Hash,
		Verified:       fairness.Verify(room.ServerSeed, room.ClientSeed, nonce, result.Hash, result.Side),
		CreatedAt:      now,
		CompletedAt:    now,
	}

	if err = that.gameRepo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("%w: failed to create game: %v", apperror.ErrPersistence, err)
	}

	room.Nonce = nonce
	room.Status = entity.StatusCompleted
	room.UpdatedAt = now

	if err = that.roomRepo.Update(ctx, room); err != nil {
		return nil, fmt.Errorf("%w: failed to update room: %v", apperror.ErrPersistence, err)
	}

	log.Info("flip resolved", "nonce", nonce, "result", result.Side, "winner", winner.ID)

	return &FlipResult{
		Result:       result.Side,
		WinnerSide:   result.Side,
		Game:         game,
		Verification: fairness.BuildVerificationPayload(room.ServerSeed, room.ClientSeed, nonce),
		WinnerPlayer: winner,
		Room:         room,
		Players:      players,
		IsReplay:     isReplay,
	}, nil
}

// IsReadyForReplay reports whether a completed room can run another
// round: both players are still seated and still hold opposite sides.
func (that *RoomManager) IsReadyForReplay(ctx context.Context, roomID string) (bool, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("%w: failed to get room: %v", apperror.ErrPersistence, err)
	}

	if !room.IsCompleted() {
		return false, nil
	}

	players, err := that.playerRepo.ListByRoomID(ctx, room.ID)
	if err != nil {
		return false, fmt.Errorf("%w: failed to list players: %v", apperror.ErrPersistence, err)
	}

	if len(players) != 2 {
		return false, nil
	}

	return players[0].Side == entity.OppositeSide(players[1].Side), nil
}

// RemovePlayer drops the player behind a closed connection. The creator
// anchors the room's lifetime: removing the creator deletes the room and
// everything it owns, while a leaving joiner only vacates their seat.
func (that *RoomManager) RemovePlayer(ctx context.Context, connectionID string) error {
	log := that.logger.With("method", "RemovePlayer", "connectionID", connectionID)

	player, err := that.playerRepo.GetByConnectionID(ctx, connectionID)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("%w: failed to find player by connection: %v", apperror.ErrPersistence, err)
	}

	unlock := that.lockRoom(player.RoomID)
	defer unlock()

	if player.IsCreator {
		if err = that.roomRepo.DeleteByID(ctx, player.RoomID); err != nil {
			return fmt.Errorf("%w: failed to delete room: %v", apperror.ErrPersistence, err)
		}

		// the lock entry dies with the room
		that.roomLocks.Delete(player.RoomID)

		log.Info("creator left, room deleted", "roomID", player.RoomID)

		return nil
	}

	if err = that.playerRepo.Delete(ctx, player); err != nil {
		return fmt.Errorf("%w: failed to delete player: %v", apperror.ErrPersistence, err)
	}

	log.Info("player removed", "roomID", player.RoomID)

	return nil
}

// GetRoomStatus resolves a room by its shareable code together with its
// ordered roster (creator first).
func (that *RoomManager) GetRoomStatus(ctx context.Context, code string) (*entity.Room, []*entity.Player, error) {
	room, err := that.roomRepo.GetByCode(ctx, code)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to get room by code: %v", apperror.ErrPersistence, err)
	}

	players, err := that.playerRepo.ListByRoomID(ctx, room.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to list players: %v", apperror.ErrPersistence, err)
	}

	return room, players, nil
}

// GetRoom resolves a room by its primary id.
func (that *RoomManager) GetRoom(ctx context.Context, roomID string) (*entity.Room, error) {
	room, err := that.roomRepo.GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrRoomNotFound) {
		return nil, apperror.ErrRoomNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("%w: failed to get room: %v", apperror.ErrPersistence, err)
	}

	return room, nil
}

// RoomPlayers returns the ordered roster for a room id.
func (that *RoomManager) RoomPlayers(ctx context.Context, roomID string) ([]*entity.Player, error) {
	players, err := that.playerRepo.ListByRoomID(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list players: %v", apperror.ErrPersistence, err)
	}

	return players, nil
}

// VerifyGame recomputes a recorded flip and returns the payload a player
// needs to check it independently.
func (that *RoomManager) VerifyGame(ctx context.Context, gameID string) (fairness.VerificationPayload, bool, error) {
	game, err := that.gameRepo.GetByID(ctx, gameID)
	if errors.Is(err, repository.ErrGameNotFound) {
		return fairness.VerificationPayload{}, false, apperror.ErrRoomNotFound
	}

	if err != nil {
		return fairness.VerificationPayload{}, false, fmt.Errorf("%w: failed to get game: %v", apperror.ErrPersistence, err)
	}

	valid := fairness.Verify(game.ServerSeed, game.ClientSeed, game.Nonce, game.Hash, game.Result)

	return fairness.BuildVerificationPayload(game.ServerSeed, game.ClientSeed, game.Nonce), valid, nil
}

func (that *RoomManager) createWithUniqueCode(ctx context.Context, room *entity.Room) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			return fmt.Errorf("failed to generate room code: %w", err)
		}

		inUse, err := that.roomRepo.CodeInUse(ctx, code)
		if err != nil {
			return fmt.Errorf("%w: failed to check room code: %v", apperror.ErrPersistence, err)
		}

		if inUse {
			continue
		}

		room.Code = code

		err = that.roomRepo.Create(ctx, room)
		if errors.Is(err, repository.ErrCodeTaken) {
			// lost the check-then-insert race; the storage constraint
			// is the true guarantee, so just draw again
			continue
		}

		if err != nil {
			return fmt.Errorf("%w: failed to create room: %v", apperror.ErrPersistence, err)
		}

		return nil
	}

	return apperror.ErrRoomCreationExhausted
}

func (that *RoomManager) newPlayer(room *entity.Room, side, displayName, connectionID string, isCreator bool) *entity.Player {
	if displayName == "" {
		displayName = entity.DefaultDisplayName(connectionID)
	}

	return &entity.Player{
		ID:           uuid.NewString(),
		RoomID:       room.ID,
		ConnectionID: connectionID,
		DisplayName:  displayName,
		Side:         side,
		IsCreator:    isCreator,
		Stake:        room.Stake,
		HasPaid:      true, // payment is handled externally
		JoinedAt:     time.Now().UTC(),
	}
}

func (that *RoomManager) lockRoom(roomID string) func() {
	value, _ := that.roomLocks.LoadOrStore(roomID, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()

	return mu.Unlock
}

func generateRoomCode() (string, error) {
	code := make([]byte, entity.RoomCodeLength)

	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(roomCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}

		code[i] = roomCodeAlphabet[n.Int64()]
	}

	return string(code), nil
}
