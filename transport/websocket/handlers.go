package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/flipside-games/coinflip-backend/internal/apperror"
	"github.com/flipside-games/coinflip-backend/internal/coordinator"
	"github.com/flipside-games/coinflip-backend/internal/entity"
)

type createRoomPayload struct {
	Side        string `json:"side"`
	DisplayName string `json:"display_name"`
}

type joinRoomPayload struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

type flipRequestPayload struct {
	RoomID string `json:"room_id"`
}

func (that *Server) handleCreateRoom(ctx context.Context, connectionID string, message *Message) error {
	var payload createRoomPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		that.sendValidationError(connectionID, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if !entity.IsValidSide(payload.Side) {
		that.sendValidationError(connectionID, "side must be heads or tails")
		return nil
	}

	// domain errors are already answered by the coordinator
	_, _, _ = that.coordinator.HandleCreateRoom(ctx, connectionID, payload.Side, payload.DisplayName)

	return nil
}

func (that *Server) handleJoinRoom(ctx context.Context, connectionID string, message *Message) error {
	var payload joinRoomPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		that.sendValidationError(connectionID, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if len(payload.Code) != entity.RoomCodeLength {
		that.sendValidationError(connectionID, "code must be 6 characters")
		return nil
	}

	_, _, _ = that.coordinator.HandleJoinRoom(ctx, connectionID, payload.Code, payload.DisplayName)

	return nil
}

func (that *Server) handleFlipRequest(ctx context.Context, connectionID string, message *Message) error {
	var payload flipRequestPayload
	if err := json.Unmarshal(message.Payload, &payload); err != nil {
		that.sendValidationError(connectionID, "malformed payload")
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.RoomID == "" {
		that.sendValidationError(connectionID, "room_id is required")
		return nil
	}

	that.coordinator.HandleFlipRequest(ctx, connectionID, payload.RoomID)

	return nil
}

func (that *Server) sendValidationError(connectionID, message string) {
	that.hub.SendTo(connectionID, coordinator.EventError, coordinator.ErrorPayload{
		Message: message,
		Type:    apperror.CategoryValidation,
	})
}
