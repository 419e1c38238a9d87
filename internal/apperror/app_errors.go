package apperror

import (
	"errors"
	"net/http"
)

var (
	// Expected business-rule rejections.
	ErrValidation        = errors.New("invalid request")
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is already full")
	ErrRoomNotReady      = errors.New("room is not ready for a flip")
	ErrMissingClientSeed = errors.New("client seed is not set")
	ErrReplayNotReady    = errors.New("room is not ready for a replay")

	// Invariant violations - should be unreachable, logged at high
	// severity and surfaced to clients as a generic internal error.
	ErrInvalidGameState   = errors.New("invalid game state")
	ErrInvalidPlayerCount = errors.New("room does not have exactly two players")
	ErrNoWinnerDetermined = errors.New("no player matches the flip result")

	// Infrastructure failures.
	ErrPersistence           = errors.New("persistence failure")
	ErrRoomCreationExhausted = errors.New("room code generation attempts exhausted")
)

const (
	CategoryValidation = "validation_error"
	CategoryNotFound   = "room_not_found"
	CategoryRoomFull   = "room_full"
	CategoryNotReady   = "room_not_ready"
	CategoryNoSeed     = "missing_client_seed"
	CategoryReplay     = "replay_not_ready"
	CategoryInternal   = "internal_error"
)

// internalMessage replaces the text of internal-class errors so that no
// invariant or storage detail leaks to clients.
const internalMessage = "internal server error"

// Category maps an error chain to its machine-readable envelope tag.
// Anything unrecognized is internal by definition.
func Category(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrRoomNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrRoomFull):
		return CategoryRoomFull
	case errors.Is(err, ErrRoomNotReady):
		return CategoryNotReady
	case errors.Is(err, ErrMissingClientSeed):
		return CategoryNoSeed
	case errors.Is(err, ErrReplayNotReady):
		return CategoryReplay
	default:
		return CategoryInternal
	}
}

// PublicMessage returns the client-facing message for an error chain.
// Business-rule rejections keep their sentinel text; internal errors are
// collapsed to a generic message.
func PublicMessage(err error) string {
	for _, candidate := range []error{
		ErrValidation,
		ErrRoomNotFound,
		ErrRoomFull,
		ErrRoomNotReady,
		ErrMissingClientSeed,
		ErrReplayNotReady,
	} {
		if errors.Is(err, candidate) {
			return candidate.Error()
		}
	}
	return internalMessage
}

// HTTPStatus maps an error chain to the REST status code for its category.
func HTTPStatus(err error) int {
	switch Category(err) {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryNotFound:
		return http.StatusNotFound
	case CategoryRoomFull, CategoryNotReady, CategoryNoSeed, CategoryReplay:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
