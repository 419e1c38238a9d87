package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipside-games/coinflip-backend/internal/apperror"
	"github.com/flipside-games/coinflip-backend/internal/coordinator"
	"github.com/flipside-games/coinflip-backend/internal/entity"
	"github.com/flipside-games/coinflip-backend/internal/repository/memory"
	"github.com/flipside-games/coinflip-backend/internal/usecase"
)

// noopMessenger satisfies the coordinator without a live transport; REST
// callers only need the synchronous responses.
type noopMessenger struct{}

func (noopMessenger) Join(string, string)           {}
func (noopMessenger) SendTo(string, string, any)    {}
func (noopMessenger) Broadcast(string, string, any) {}

type instantDelayer struct{}

func (instantDelayer) Wait(context.Context, time.Duration) error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *usecase.RoomManager) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	store := memory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := usecase.NewRoomManager(logger, store.Rooms(), store.Players(), store.Games(), 100)

	coord := coordinator.New(logger, manager, noopMessenger{}, instantDelayer{}, coordinator.Delays{})

	return NewServer(logger, coord, manager).Router(), manager
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t)

	recorder := doJSON(t, router, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	assert.Equal(t, "ok", response["status"])
	assert.Equal(t, "coinflip-backend", response["service"])
	assert.NotEmpty(t, response["timestamp"])
}

func TestCreateRoom(t *testing.T) {
	t.Run("creates a room and redacts the server seed", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{
			"side":          "heads",
			"display_name":  "alice",
			"connection_id": "conn-1",
		})

		require.Equal(t, http.StatusCreated, recorder.Code)

		var response struct {
			Room   entity.Room   `json:"room"`
			Player entity.Player `json:"player"`
			Stake  int64         `json:"stake"`
			Pot    int64         `json:"pot"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

		assert.Regexp(t, `^[A-Z0-9]{6}$`, response.Room.Code)
		assert.Equal(t, entity.StatusWaiting, response.Room.Status)
		assert.Empty(t, response.Room.ServerSeed)
		assert.NotEmpty(t, response.Room.ServerSeedHash)
		assert.Equal(t, entity.SideHeads, response.Player.Side)
		assert.True(t, response.Player.IsCreator)
		assert.EqualValues(t, 200, response.Pot)
	})

	t.Run("rejects an unknown side", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{
			"side":          "edge",
			"connection_id": "conn-1",
		})

		require.Equal(t, http.StatusBadRequest, recorder.Code)

		var response errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, apperror.CategoryValidation, response.Type)
	})

	t.Run("mints an ephemeral connection id when none is given", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/rooms", gin.H{"side": "heads"})

		require.Equal(t, http.StatusCreated, recorder.Code)

		var response struct {
			Player entity.Player `json:"player"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.NotEmpty(t, response.Player.ConnectionID)
	})
}

func TestJoinRoom(t *testing.T) {
	t.Run("joins and returns the opposite side with the full roster", func(t *testing.T) {
		router, manager := newTestRouter(t)

		room, _, err := manager.CreateRoom(context.Background(), entity.SideTails, "alice", "conn-1")
		require.NoError(t, err)

		recorder := doJSON(t, router, http.MethodPost, "/api/rooms/join", gin.H{
			"code":          room.Code,
			"display_name":  "bob",
			"connection_id": "conn-2",
		})

		require.Equal(t, http.StatusOK, recorder.Code)

		var response struct {
			Room    entity.Room      `json:"room"`
			Side    string           `json:"side"`
			Players []*entity.Player `json:"players"`
		}
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

		assert.Equal(t, entity.SideHeads, response.Side)
		assert.Equal(t, entity.StatusFull, response.Room.Status)
		require.Len(t, response.Players, 2)
		assert.True(t, response.Players[0].IsCreator)
	})

	t.Run("unknown code maps to 404 with the envelope", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/rooms/join", gin.H{
			"code":          "ZZZZZZ",
			"connection_id": "conn-2",
		})

		require.Equal(t, http.StatusNotFound, recorder.Code)

		var response errorResponse
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
		assert.Equal(t, apperror.CategoryNotFound, response.Type)
		assert.Equal(t, "room not found", response.Message)
	})

	t.Run("rejects a malformed code", func(t *testing.T) {
		router, _ := newTestRouter(t)

		recorder := doJSON(t, router, http.MethodPost, "/api/rooms/join", gin.H{
			"code":          "TOOLONGCODE",
			"connection_id": "conn-2",
		})

		assert.Equal(t, http.StatusBadRequest, recorder.Code)
	})
}

func TestRoomStatus(t *testing.T) {
	router, manager := newTestRouter(t)

	room, _, err := manager.CreateRoom(context.Background(), entity.SideHeads, "alice", "conn-1")
	require.NoError(t, err)

	recorder := doJSON(t, router, http.MethodGet, "/api/rooms/"+room.Code, nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Room    entity.Room      `json:"room"`
		Players []*entity.Player `json:"players"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.Equal(t, room.ID, response.Room.ID)
	assert.Empty(t, response.Room.ServerSeed)
	assert.Len(t, response.Players, 1)
}

func TestVerifyGame(t *testing.T) {
	router, manager := newTestRouter(t)

	ctx := context.Background()

	room, _, err := manager.CreateRoom(ctx, entity.SideHeads, "alice", "conn-1")
	require.NoError(t, err)
	_, _, err = manager.JoinRoom(ctx, room.Code, "bob", "conn-2")
	require.NoError(t, err)
	result, err := manager.FlipCoin(ctx, room.ID)
	require.NoError(t, err)

	recorder := doJSON(t, router, http.MethodGet, "/api/games/"+result.Game.ID+"/verify", nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var response struct {
		Valid        bool `json:"valid"`
		Verification struct {
			ServerSeed string `json:"server_seed"`
			ClientSeed string `json:"client_seed"`
			Nonce      int64  `json:"nonce"`
		} `json:"verification"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))

	assert.True(t, response.Valid)
	assert.Equal(t, result.Game.ServerSeed, response.Verification.ServerSeed)
	assert.Equal(t, result.Game.Nonce, response.Verification.Nonce)
}
