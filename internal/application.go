package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/flipside-games/coinflip-backend/internal/config"
	"github.com/flipside-games/coinflip-backend/internal/coordinator"
	"github.com/flipside-games/coinflip-backend/internal/repository"
	"github.com/flipside-games/coinflip-backend/internal/repository/storage"
	"github.com/flipside-games/coinflip-backend/internal/usecase"
	"github.com/flipside-games/coinflip-backend/transport/rest"
	"github.com/flipside-games/coinflip-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisClient, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisClient.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	roomRepo := repository.NewRoomRepository(redisClient)
	playerRepo := repository.NewPlayerRepository(redisClient)
	gameRepo := repository.NewGameRepository(redisClient)

	roomManager := usecase.NewRoomManager(logger, roomRepo, playerRepo, gameRepo, conf.Game.Stake)

	hub := websocket.NewHub(logger)

	sessionCoordinator := coordinator.New(logger, roomManager, hub, coordinator.NewTimerDelayer(), coordinator.Delays{
		AutoStart: conf.Game.AutoStartDelay,
		Flip:      conf.Game.FlipDelay,
		Replay:    conf.Game.ReplayDelay,
	})

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		restServer := rest.NewServer(logger, sessionCoordinator, roomManager)
		if httpErr := restServer.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	// run WebSocket server
	wsErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, sessionCoordinator, hub)
		if wsErr := wsServer.Start(ctx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			wsErrCh <- wsErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case err = <-wsErrCh:
		return fmt.Errorf("WebSocket server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}
