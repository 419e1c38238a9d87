package rest

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flipside-games/coinflip-backend/internal/entity"
	"github.com/flipside-games/coinflip-backend/internal/fairness"
)

const serviceName = "coinflip-backend"

type sessionCoordinator interface {
	HandleCreateRoom(ctx context.Context, connectionID, side, displayName string) (*entity.Room, *entity.Player, error)
	HandleJoinRoom(ctx context.Context, connectionID, code, displayName string) (*entity.Room, *entity.Player, error)
}

type roomManager interface {
	GetRoomStatus(ctx context.Context, code string) (*entity.Room, []*entity.Player, error)
	VerifyGame(ctx context.Context, gameID string) (fairness.VerificationPayload, bool, error)
}

type Server struct {
	logger      *slog.Logger
	coordinator sessionCoordinator
	rooms       roomManager
}

func NewServer(logger *slog.Logger, coord sessionCoordinator, rooms roomManager) *Server {
	return &Server{
		logger:      logger,
		coordinator: coord,
		rooms:       rooms,
	}
}

// Router builds the gin engine with all routes attached.
func (that *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", that.health)

	api := router.Group("/api")
	{
		api.POST("/rooms", that.createRoom)
		api.POST("/rooms/join", that.joinRoom)
		api.GET("/rooms/:code", that.roomStatus)
		api.GET("/games/:id/verify", that.verifyGame)
	}

	return router
}

// Start - starts the REST server.
func (that *Server) Start(ctx context.Context, port string) error {
	gin.SetMode(gin.ReleaseMode)

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      that.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}
