package repository_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipside-games/coinflip-backend/internal/entity"
	"github.com/flipside-games/coinflip-backend/internal/repository"
	"github.com/flipside-games/coinflip-backend/testing/suite"
)

func TestPlayerRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, s := suite.New(t)

	players := repository.NewPlayerRepository(s.Storage)

	creator := &entity.Player{
		ID:           "player-1",
		RoomID:       "room-1",
		ConnectionID: "conn-1",
		DisplayName:  "alice",
		Side:         entity.SideHeads,
		IsCreator:    true,
		Stake:        100,
		HasPaid:      true,
		JoinedAt:     time.Now().UTC().Truncate(time.Second),
	}

	joiner := &entity.Player{
		ID:           "player-2",
		RoomID:       "room-1",
		ConnectionID: "conn-2",
		DisplayName:  "bob",
		Side:         entity.SideTails,
		Stake:        100,
		HasPaid:      true,
		JoinedAt:     time.Now().UTC().Truncate(time.Second),
	}

	t.Run("round-trips players by id and by connection", func(t *testing.T) {
		require.NoError(t, players.Create(ctx, creator))

		byID, err := players.GetByID(ctx, creator.ID)
		require.NoError(t, err)
		assert.Equal(t, creator, byID)

		byConn, err := players.GetByConnectionID(ctx, creator.ConnectionID)
		require.NoError(t, err)
		assert.Equal(t, creator, byConn)
	})

	t.Run("lists the roster in join order, creator first", func(t *testing.T) {
		require.NoError(t, players.Create(ctx, joiner))

		roster, err := players.ListByRoomID(ctx, "room-1")
		require.NoError(t, err)
		require.Len(t, roster, 2)
		assert.True(t, roster[0].IsCreator)
		assert.Equal(t, creator.ID, roster[0].ID)
		assert.Equal(t, joiner.ID, roster[1].ID)
	})

	t.Run("missing players read as not found", func(t *testing.T) {
		_, err := players.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrPlayerNotFound)

		_, err = players.GetByConnectionID(ctx, "conn-missing")
		assert.ErrorIs(t, err, repository.ErrPlayerNotFound)
	})

	t.Run("delete removes the seat and the connection index", func(t *testing.T) {
		require.NoError(t, players.Delete(ctx, joiner))

		_, err := players.GetByID(ctx, joiner.ID)
		assert.ErrorIs(t, err, repository.ErrPlayerNotFound)

		_, err = players.GetByConnectionID(ctx, joiner.ConnectionID)
		assert.ErrorIs(t, err, repository.ErrPlayerNotFound)

		roster, err := players.ListByRoomID(ctx, "room-1")
		require.NoError(t, err)
		require.Len(t, roster, 1)
		assert.Equal(t, creator.ID, roster[0].ID)
	})
}
