package http

import (
	"net/http"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/store"
)

// RoomHandlers provides room creation and listing endpoints.
type RoomHandlers struct {
	store store.RoomStore
	log   *zerolog.Logger
}

// NewRoomHandlers creates a new room handlers instance.
func NewRoomHandlers(st store.RoomStore, logger *zerolog.Logger) *RoomHandlers {
	return &RoomHandlers{store: st, log: logger}
}

// CreateRoomRequest represents the room creation body. Users lists the
// invited member IDs; the creator is always added.
type CreateRoomRequest struct {
	Type  store.RoomKind `json:"type" binding:"required,oneof=private group"`
	Name  string         `json:"name"`
	Users []int64        `json:"users" binding:"required,min=1"`
}

// Create handles creating a new room.
// POST /room
func (h *RoomHandlers) Create(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		return
	}

	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create-room request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	kind := req.Type
	if kind == store.RoomKindPrivate && len(req.Users) > 1 {
		kind = store.RoomKindGroup
	}
	if kind == store.RoomKindGroup {
		// Rune count, not bytes: names are frequently non-ASCII.
		if n := utf8.RuneCountInString(req.Name); n < 5 || n > 100 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Group rooms require a name between 5 and 100 characters"})
			return
		}
	}

	memberIDs := append([]int64{user.ID}, req.Users...)
	room, err := h.store.CreateRoom(c.Request.Context(), kind, req.Name, memberIDs)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to create room")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("endpoint", room.Endpoint).Str("kind", string(room.Kind)).Msg("room created")
	c.JSON(http.StatusCreated, room)
}

// List handles retrieving the caller's rooms, newest first.
// GET /room/all
func (h *RoomHandlers) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		return
	}

	rooms, err := h.store.ListRoomsByMember(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to list rooms")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}
