package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flipside-games/coinflip-backend/internal/apperror"
	"github.com/flipside-games/coinflip-backend/internal/entity"
)

// connection_id is optional: clients that already hold a live socket
// pass theirs so realtime events reach them, plain HTTP callers get an
// ephemeral identity minted server-side.
type createRoomRequest struct {
	Side         string `json:"side" binding:"required"`
	DisplayName  string `json:"display_name"`
	ConnectionID string `json:"connection_id"`
}

type joinRoomRequest struct {
	Code         string `json:"code" binding:"required,len=6"`
	DisplayName  string `json:"display_name"`
	ConnectionID string `json:"connection_id"`
}

type errorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (that *Server) createRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "invalid request body",
			Type:    apperror.CategoryValidation,
		})
		return
	}

	if !entity.IsValidSide(req.Side) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "side must be heads or tails",
			Type:    apperror.CategoryValidation,
		})
		return
	}

	if req.ConnectionID == "" {
		req.ConnectionID = uuid.NewString()
	}

	room, player, err := that.coordinator.HandleCreateRoom(c.Request.Context(), req.ConnectionID, req.Side, req.DisplayName)
	if err != nil {
		that.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"room":   room.Public(),
		"player": player,
		"stake":  room.Stake,
		"pot":    room.Pot,
	})
}

func (that *Server) joinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Message: "invalid request body",
			Type:    apperror.CategoryValidation,
		})
		return
	}

	if req.ConnectionID == "" {
		req.ConnectionID = uuid.NewString()
	}

	room, player, err := that.coordinator.HandleJoinRoom(c.Request.Context(), req.ConnectionID, req.Code, req.DisplayName)
	if err != nil {
		that.writeError(c, err)
		return
	}

	_, players, statusErr := that.rooms.GetRoomStatus(c.Request.Context(), room.Code)
	if statusErr != nil {
		that.writeError(c, statusErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":    room.Public(),
		"side":    player.Side,
		"players": players,
	})
}

func (that *Server) roomStatus(c *gin.Context) {
	room, players, err := that.rooms.GetRoomStatus(c.Request.Context(), c.Param("code"))
	if err != nil {
		that.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room":    room.Public(),
		"players": players,
	})
}

func (that *Server) verifyGame(c *gin.Context) {
	verification, valid, err := that.rooms.VerifyGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		that.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"verification": verification,
		"valid":        valid,
	})
}

func (that *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   serviceName,
	})
}

func (that *Server) writeError(c *gin.Context, err error) {
	that.logger.Error("request failed", "path", c.FullPath(), "error", err)

	c.JSON(apperror.HTTPStatus(err), errorResponse{
		Message: apperror.PublicMessage(err),
		Type:    apperror.Category(err),
	})
}
