// Package coordinator bridges live connections to the room state machine
// and runs the timed broadcast choreography of a round: the ready
// notification, the scheduled auto-start, the animation delay before the
// result, and the personalized win/lose messages.
package coordinator

import (
	"context"
	"log/slog"
	"time"

	"github.com/flipside-games/coinflip-backend/internal/apperror"
	"github.com/flipside-games/coinflip-backend/internal/entity"
	"github.com/flipside-games/coinflip-backend/internal/usecase"
)

const (
	EventConnected   = "connected"
	EventRoomCreated = "room:created"
	EventRoomJoined  = "room:joined"
	EventRoomReady   = "room:ready"
	EventFlipReplay  = "flip:replay"
	EventFlipStarted = "flip:started"
	EventFlipResult  = "flip:result"
	EventFlipOutcome = "flip:outcome"
	EventError       = "error"
)

// Messenger is the realtime transport collaborator: a pub/sub channel
// keyed by room id. Broadcasting to a room nobody is subscribed to must
// be a silent no-op.
type Messenger interface {
	Join(roomID, connectionID string)
	SendTo(connectionID, event string, payload any)
	Broadcast(roomID, event string, payload any)
}

// Delayer abstracts the animation waits so tests can fast-forward
// instead of sleeping wall-clock seconds.
type Delayer interface {
	Wait(ctx context.Context, d time.Duration) error
}

type timerDelayer struct{}

func (timerDelayer) Wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NewTimerDelayer returns the production Delayer backed by time.Timer.
func NewTimerDelayer() Delayer { return timerDelayer{} }

// Delays holds the fixed choreography intervals.
type Delays struct {
	AutoStart time.Duration
	Flip      time.Duration
	Replay    time.Duration
}

type roomManager interface {
	CreateRoom(ctx context.Context, side, displayName, connectionID string) (*entity.Room, *entity.Player, error)
	JoinRoom(ctx context.Context, code, displayName, connectionID string) (*entity.Room, *entity.Player, error)
	FlipCoin(ctx context.Context, roomID string) (*usecase.FlipResult, error)
	IsReadyForReplay(ctx context.Context, roomID string) (bool, error)
	RemovePlayer(ctx context.Context, connectionID string) error
	GetRoom(ctx context.Context, roomID string) (*entity.Room, error)
	RoomPlayers(ctx context.Context, roomID string) ([]*entity.Player, error)
}

type Coordinator struct {
	logger    *slog.Logger
	rooms     roomManager
	messenger Messenger
	delayer   Delayer
	delays    Delays
}

func New(logger *slog.Logger, rooms roomManager, messenger Messenger, delayer Delayer, delays Delays) *Coordinator {
	return &Coordinator{
		logger:    logger,
		rooms:     rooms,
		messenger: messenger,
		delayer:   delayer,
		delays:    delays,
	}
}

// ErrorPayload is the error envelope shared by both transports.
type ErrorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func errorPayload(err error) ErrorPayload {
	return ErrorPayload{
		Message: apperror.PublicMessage(err),
		Type:    apperror.Category(err),
	}
}

// RoomPayload accompanies room lifecycle events.
type RoomPayload struct {
	Room    *entity.Room     `json:"room"`
	You     *entity.Player   `json:"you,omitempty"`
	Players []*entity.Player `json:"players"`
	Stake   int64            `json:"stake"`
	Pot     int64            `json:"pot"`
}

// OutcomePayload is the personalized win/lose message.
type OutcomePayload struct {
	Won        bool   `json:"won"`
	YourSide   string `json:"your_side"`
	WinnerSide string `json:"winner_side"`
	Pot        int64  `json:"pot"`
}

// HandleCreateRoom opens a room for the creator's connection and notifies
// that connection only.
func (that *Coordinator) HandleCreateRoom(ctx context.Context, connectionID, side, displayName string) (*entity.Room, *entity.Player, error) {
	log := that.logger.With("method", "HandleCreateRoom", "connectionID", connectionID)

	room, player, err := that.rooms.CreateRoom(ctx, side, displayName, connectionID)
	if err != nil {
		log.Error("failed to create room", "error", err)
		that.messenger.SendTo(connectionID, EventError, errorPayload(err))

		return nil, nil, err
	}

	that.messenger.Join(room.ID, connectionID)
	that.messenger.SendTo(connectionID, EventRoomCreated, RoomPayload{
		Room:    room.Public(),
		You:     player,
		Players: []*entity.Player{player},
		Stake:   room.Stake,
		Pot:     room.Pot,
	})

	return room, player, nil
}

// HandleJoinRoom seats the joiner, tells them their assigned side,
// broadcasts readiness to the whole room, and schedules the auto-start.
func (that *Coordinator) HandleJoinRoom(ctx context.Context, connectionID, code, displayName string) (*entity.Room, *entity.Player, error) {
	log := that.logger.With("method", "HandleJoinRoom", "connectionID", connectionID, "code", code)

	room, player, err := that.rooms.JoinRoom(ctx, code, displayName, connectionID)
	if err != nil {
		log.Error("failed to join room", "error", err)
		that.messenger.SendTo(connectionID, EventError, errorPayload(err))

		return nil, nil, err
	}

	players, err := that.rooms.RoomPlayers(ctx, room.ID)
	if err != nil {
		log.Error("failed to load roster", "roomID", room.ID, "error", err)
		that.messenger.SendTo(connectionID, EventError, errorPayload(err))

		return nil, nil, err
	}

	that.messenger.Join(room.ID, connectionID)

	payload := RoomPayload{
		Room:    room.Public(),
		Players: players,
		Stake:   room.Stake,
		Pot:     room.Pot,
	}

	joined := payload
	joined.You = player
	that.messenger.SendTo(connectionID, EventRoomJoined, joined)

	that.messenger.Broadcast(room.ID, EventRoomReady, payload)

	// the round starts on its own once the room is ready; no further
	// client action is required
	go that.autoStart(context.WithoutCancel(ctx), room.ID)

	return room, player, nil
}

// HandleFlipRequest runs a flip on direct client demand, used for replays
// or as a fallback when the auto-start was missed.
func (that *Coordinator) HandleFlipRequest(ctx context.Context, connectionID, roomID string) {
	log := that.logger.With("method", "HandleFlipRequest", "connectionID", connectionID, "roomID", roomID)

	room, err := that.rooms.GetRoom(ctx, roomID)
	if err != nil {
		log.Error("failed to get room", "error", err)
		that.messenger.SendTo(connectionID, EventError, errorPayload(err))

		return
	}

	if room.IsCompleted() {
		ready, err := that.rooms.IsReadyForReplay(ctx, roomID)
		if err != nil {
			log.Error("failed to check replay readiness", "error", err)
			that.messenger.SendTo(connectionID, EventError, errorPayload(err))

			return
		}

		if !ready {
			that.messenger.SendTo(connectionID, EventError, errorPayload(apperror.ErrReplayNotReady))

			return
		}

		that.messenger.Broadcast(roomID, EventFlipReplay, map[string]any{"room_id": roomID, "replay": true})

		if err = that.delayer.Wait(ctx, that.delays.Replay); err != nil {
			return
		}
	}

	that.runFlip(ctx, roomID)
}

// HandleDisconnect cleans up after a closed connection. Failures here are
// logged and swallowed: a transport callback cannot report upstream.
func (that *Coordinator) HandleDisconnect(ctx context.Context, connectionID string) {
	log := that.logger.With("method", "HandleDisconnect", "connectionID", connectionID)

	if err := that.rooms.RemovePlayer(ctx, connectionID); err != nil {
		log.Error("failed to remove player on disconnect", "error", err)
	}
}

// autoStart waits the fixed pre-game delay, then runs the flip sequence.
// Once scheduled there is no cancellation path: the flip resolves and is
// broadcast to whoever is still connected.
func (that *Coordinator) autoStart(ctx context.Context, roomID string) {
	if err := that.delayer.Wait(ctx, that.delays.AutoStart); err != nil {
		return
	}

	that.runFlip(ctx, roomID)
}

// runFlip plays the started -> animation delay -> result sequence. All
// players are waiting on this outcome, so errors go to the whole room.
func (that *Coordinator) runFlip(ctx context.Context, roomID string) {
	log := that.logger.With("method", "runFlip", "roomID", roomID)

	that.messenger.Broadcast(roomID, EventFlipStarted, map[string]any{"room_id": roomID})

	if err := that.delayer.Wait(ctx, that.delays.Flip); err != nil {
		return
	}

	result, err := that.rooms.FlipCoin(ctx, roomID)
	if err != nil {
		log.Error("failed to flip coin", "error", err)
		that.messenger.Broadcast(roomID, EventError, errorPayload(err))

		return
	}

	that.messenger.Broadcast(roomID, EventFlipResult, result)

	for _, player := range result.Players {
		that.messenger.SendTo(player.ConnectionID, EventFlipOutcome, OutcomePayload{
			Won:        player.ID == result.WinnerPlayer.ID,
			YourSide:   player.Side,
			WinnerSide: result.WinnerSide,
			Pot:        result.Game.Pot,
		})
	}

	log.Info("flip broadcast", "nonce", result.Game.Nonce, "result", result.Result)
}
