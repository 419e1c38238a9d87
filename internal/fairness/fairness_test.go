package fairness

import (
	"encoding/hex"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flipside-games/coinflip-backend/internal/entity"
)

func TestGenerateSeeds(t *testing.T) {
	t.Run("server seed is 64 hex characters", func(t *testing.T) {
		seed, err := GenerateServerSeed()

		require.NoError(t, err)
		assert.Len(t, seed, 64)

		_, err = hex.DecodeString(seed)
		assert.NoError(t, err)
	})

	t.Run("client seed is 32 hex characters", func(t *testing.T) {
		seed, err := GenerateClientSeed()

		require.NoError(t, err)
		assert.Len(t, seed, 32)

		_, err = hex.DecodeString(seed)
		assert.NoError(t, err)
	})

	t.Run("server seeds are never repeated", func(t *testing.T) {
		seen := make(map[string]bool)

		for i := 0; i < 100; i++ {
			seed, err := GenerateServerSeed()
			require.NoError(t, err)
			assert.False(t, seen[seed], "seed generated twice: %s", seed)
			seen[seed] = true
		}
	})
}

func TestHashServerSeed(t *testing.T) {
	t.Run("commitment matches a known SHA-256 digest", func(t *testing.T) {
		// sha256("test") - fixed vector
		assert.Equal(t,
			"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			HashServerSeed("test"),
		)
	})

	t.Run("different seeds produce different commitments", func(t *testing.T) {
		assert.NotEqual(t, HashServerSeed("seed-a"), HashServerSeed("seed-b"))
	})
}

func TestComputeResult(t *testing.T) {
	t.Run("is deterministic for the same inputs", func(t *testing.T) {
		serverSeed, err := GenerateServerSeed()
		require.NoError(t, err)
		clientSeed, err := GenerateClientSeed()
		require.NoError(t, err)

		first := ComputeResult(serverSeed, clientSeed, 1)

		for i := 0; i < 10; i++ {
			again := ComputeResult(serverSeed, clientSeed, 1)
			assert.Equal(t, first, again)
		}
	})

	t.Run("hash is a full SHA-256 hex digest", func(t *testing.T) {
		result := ComputeResult("server", "client", 1)

		assert.Len(t, result.Hash, 64)

		_, err := hex.DecodeString(result.Hash)
		assert.NoError(t, err)
	})

	t.Run("side is always one of the two literal values", func(t *testing.T) {
		for nonce := int64(1); nonce <= 50; nonce++ {
			result := ComputeResult("server", "client", nonce)
			assert.True(t, entity.IsValidSide(result.Side), "unexpected side %q", result.Side)
		}
	})

	t.Run("changing any input changes the outcome hash", func(t *testing.T) {
		base := ComputeResult("server", "client", 1)

		assert.NotEqual(t, base.Hash, ComputeResult("server2", "client", 1).Hash)
		assert.NotEqual(t, base.Hash, ComputeResult("server", "client2", 1).Hash)
		assert.NotEqual(t, base.Hash, ComputeResult("server", "client", 2).Hash)
	})

	t.Run("distribution over 1000 fresh trials stays within 45-55%", func(t *testing.T) {
		const trials = 1000

		heads := 0

		for nonce := int64(1); nonce <= trials; nonce++ {
			serverSeed, err := GenerateServerSeed()
			require.NoError(t, err)
			clientSeed, err := GenerateClientSeed()
			require.NoError(t, err)

			if ComputeResult(serverSeed, clientSeed, nonce).Side == entity.SideHeads {
				heads++
			}
		}

		ratio := float64(heads) / float64(trials)
		assert.InDelta(t, 0.5, ratio, 0.05, "heads ratio %f outside 45-55%%", ratio)
	})
}

func TestVerify(t *testing.T) {
	serverSeed := "a2f1c0d9e8b7a6c5d4e3f2a1b0c9d8e7f6a5b4c3d2e1f0a9b8c7d6e5f4a3b2c1"
	clientSeed := "0f1e2d3c4b5a69788796a5b4c3d2e1f0"

	result := ComputeResult(serverSeed, clientSeed, 1)

	t.Run("accepts the hash and side just computed", func(t *testing.T) {
		assert.True(t, Verify(serverSeed, clientSeed, 1, result.Hash, result.Side))
	})

	t.Run("rejects any single altered input", func(t *testing.T) {
		cases := []struct {
			name       string
			serverSeed string
			clientSeed string
			nonce      int64
			hash       string
			side       string
		}{
			{"altered server seed", "other", clientSeed, 1, result.Hash, result.Side},
			{"altered client seed", serverSeed, "other", 1, result.Hash, result.Side},
			{"altered nonce", serverSeed, clientSeed, 2, result.Hash, result.Side},
			{"altered hash", serverSeed, clientSeed, 1, "deadbeef", result.Side},
			{"altered side", serverSeed, clientSeed, 1, result.Hash, entity.OppositeSide(result.Side)},
		}

		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				assert.False(t, Verify(tc.serverSeed, tc.clientSeed, tc.nonce, tc.hash, tc.side))
			})
		}
	})

	t.Run("returns false on malformed input instead of panicking", func(t *testing.T) {
		assert.False(t, Verify("", clientSeed, 1, result.Hash, result.Side))
		assert.False(t, Verify(serverSeed, "", 1, result.Hash, result.Side))
		assert.False(t, Verify(serverSeed, clientSeed, -1, result.Hash, result.Side))
		assert.False(t, Verify(serverSeed, clientSeed, 1, result.Hash, "edge"))
	})
}

func TestBuildVerificationPayload(t *testing.T) {
	payload := BuildVerificationPayload("server", "client", 7)

	assert.Equal(t, "server", payload.ServerSeed)
	assert.Equal(t, "client", payload.ClientSeed)
	assert.EqualValues(t, 7, payload.Nonce)
	assert.Equal(t, "server:client:7", payload.Input)
	assert.NotEmpty(t, payload.VerificationLink)
	assert.NotEmpty(t, payload.Instructions)
}

func TestParityMapping(t *testing.T) {
	// the first 8 hex chars of the digest, read as a uint32, pick the
	// side by parity: even means heads. Pin a couple of vectors so a
	// refactor cannot silently change recorded games.
	for _, tc := range []struct {
		serverSeed string
		clientSeed string
		nonce      int64
	}{
		{"server", "client", 1},
		{"server", "client", 2},
		{"aa", "bb", 3},
	} {
		result := ComputeResult(tc.serverSeed, tc.clientSeed, tc.nonce)

		var prefix uint32
		_, err := fmt.Sscanf(result.Hash[:8], "%08x", &prefix)
		require.NoError(t, err)

		expected := entity.SideHeads
		if prefix%2 == 1 {
			expected = entity.SideTails
		}

		assert.Equal(t, expected, result.Side)
	}
}
