package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/flipside-games/coinflip-backend/internal/coordinator"
	"github.com/flipside-games/coinflip-backend/internal/entity"
)

// Message is the client-to-server envelope: an action name plus its
// action-specific payload.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type sessionCoordinator interface {
	HandleCreateRoom(ctx context.Context, connectionID, side, displayName string) (*entity.Room, *entity.Player, error)
	HandleJoinRoom(ctx context.Context, connectionID, code, displayName string) (*entity.Room, *entity.Player, error)
	HandleFlipRequest(ctx context.Context, connectionID, roomID string)
	HandleDisconnect(ctx context.Context, connectionID string)
}

type Server struct {
	logger      *slog.Logger
	coordinator sessionCoordinator
	hub         *Hub
	upgrader    websocket.Upgrader

	handlers map[string]func(ctx context.Context, connectionID string, message *Message) error
}

func New(logger *slog.Logger, coord sessionCoordinator, hub *Hub) *Server {
	server := &Server{
		logger:      logger,
		coordinator: coord,
		hub:         hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(_ *http.Request) bool { return true },
		},

		handlers: make(map[string]func(context.Context, string, *Message) error),
	}

	server.handlers["room:create"] = server.handleCreateRoom
	server.handlers["room:join"] = server.handleJoinRoom
	server.handlers["flip:request"] = server.handleFlipRequest

	return server
}

// Start - starts the WebSocket gateway.
func (that *Server) Start(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		that.serveConnection(ctx, w, r)
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 10 * time.Second,
		IdleTimeout: 30 * time.Second,
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

// serveConnection upgrades the request, assigns the ephemeral connection
// id that identifies the player for its whole lifetime, and pumps
// messages until the peer goes away.
func (that *Server) serveConnection(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := that.logger.With("method", "serveConnection")

	conn, err := that.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	connectionID := uuid.NewString()
	log = log.With("connectionID", connectionID)

	that.hub.Register(connectionID, conn)
	that.hub.SendTo(connectionID, coordinator.EventConnected, map[string]string{"connection_id": connectionID})

	log.Info("connection established")

	defer func() {
		that.hub.Unregister(connectionID)
		that.coordinator.HandleDisconnect(ctx, connectionID)
		_ = conn.Close()

		log.Info("connection closed")
	}()

	for {
		var message Message
		if err = conn.ReadJSON(&message); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("unexpected close", "error", err)
			}
			return
		}

		handler, ok := that.handlers[message.Action]
		if !ok {
			that.sendValidationError(connectionID, fmt.Sprintf("unknown action: %s", message.Action))
			continue
		}

		if err = handler(ctx, connectionID, &message); err != nil {
			log.Error("error processing message", "action", message.Action, "error", err)
		}
	}
}
