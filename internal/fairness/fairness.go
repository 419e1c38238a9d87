// Package fairness implements the provably-fair flip protocol: the house
// commits to a secret server seed before the client seed exists, and every
// resolved flip is the deterministic SHA-256 digest of both seeds plus a
// per-room nonce, so any party can recompute the outcome after the fact.
package fairness

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"

	"github.com/flipside-games/coinflip-backend/internal/entity"
)

const (
	serverSeedBytes = 32
	clientSeedBytes = 16

	// resultHexChars - how many leading hex characters of the digest feed
	// the outcome. 8 hex chars parse into an unsigned 32-bit integer whose
	// parity picks the side. Changing this breaks verification of every
	// previously recorded game.
	resultHexChars = 8
)

// verificationToolURL - external SHA-256 tool players can use to recompute
// the digest by hand.
const verificationToolURL = "https://emn178.github.io/online-tools/sha256.html"

// Result is a deterministic flip outcome.
type Result struct {
	Side string `json:"side"`
	Hash string `json:"hash"`
}

// VerificationPayload packages everything a player needs to recompute a
// flip themselves.
type VerificationPayload struct {
	ServerSeed       string `json:"server_seed"`
	ClientSeed       string `json:"client_seed"`
	Nonce            int64  `json:"nonce"`
	Input            string `json:"input"`
	VerificationLink string `json:"verification_link"`
	Instructions     string `json:"instructions"`
}

// GenerateServerSeed returns a fresh 32-byte CSPRNG seed, hex-encoded.
// Never reused across rooms.
func GenerateServerSeed() (string, error) {
	return generateSeed(serverSeedBytes)
}

// GenerateClientSeed returns a fresh 16-byte CSPRNG seed, hex-encoded.
func GenerateClientSeed() (string, error) {
	return generateSeed(clientSeedBytes)
}

func generateSeed(size int) (string, error) {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// HashServerSeed returns the SHA-256 commitment published before the
// client seed is known. The raw seed is revealed only after a flip.
func HashServerSeed(seed string) string {
	digest := sha256.Sum256([]byte(seed))
	return hex.EncodeToString(digest[:])
}

// ComputeResult derives the flip outcome for a seed pair and nonce. Pure:
// the same inputs always yield the same side and hash.
func ComputeResult(serverSeed, clientSeed string, nonce int64) Result {
	input := flipInput(serverSeed, clientSeed, nonce)

	digest := sha256.Sum256([]byte(input))
	hash := hex.EncodeToString(digest[:])

	// The first 8 hex chars of a SHA-256 digest always parse as uint32.
	value, _ := strconv.ParseUint(hash[:resultHexChars], 16, 32)

	side := entity.SideHeads
	if value%2 == 1 {
		side = entity.SideTails
	}

	return Result{Side: side, Hash: hash}
}

// Verify recomputes a flip and compares both the hash and the side.
// Returns false on any mismatch or malformed input, never panics.
func Verify(serverSeed, clientSeed string, nonce int64, expectedHash, expectedSide string) bool {
	if serverSeed == "" || clientSeed == "" || nonce < 0 {
		return false
	}

	if !entity.IsValidSide(expectedSide) {
		return false
	}

	result := ComputeResult(serverSeed, clientSeed, nonce)

	return result.Hash == expectedHash && result.Side == expectedSide
}

// BuildVerificationPayload packages seeds, nonce, and instructions for
// player self-verification via an external SHA-256 tool.
func BuildVerificationPayload(serverSeed, clientSeed string, nonce int64) VerificationPayload {
	input := flipInput(serverSeed, clientSeed, nonce)

	return VerificationPayload{
		ServerSeed:       serverSeed,
		ClientSeed:       clientSeed,
		Nonce:            nonce,
		Input:            input,
		VerificationLink: verificationToolURL,
		Instructions: "Paste the input string into the SHA-256 tool. Take the first 8 characters " +
			"of the digest, convert them from hex to a number: even means heads, odd means tails.",
	}
}

func flipInput(serverSeed, clientSeed string, nonce int64) string {
	return serverSeed + ":" + clientSeed + ":" + strconv.FormatInt(nonce, 10)
}
