package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/upload"
)

// MessageHandlers provides message-related REST endpoints. Sending itself
// happens over the websocket; this only covers image hosting.
type MessageHandlers struct {
	saver *upload.Saver
	log   *zerolog.Logger
}

// NewMessageHandlers creates a new message handlers instance.
func NewMessageHandlers(saver *upload.Saver, logger *zerolog.Logger) *MessageHandlers {
	return &MessageHandlers{saver: saver, log: logger}
}

// UploadImage stores a chat image and returns the URL the client then sends
// as message content.
// POST /message/image-uploader
func (h *MessageHandlers) UploadImage(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image file is required"})
		return
	}

	url, err := h.saver.Save(c, file, "message-image")
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported image type"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store message image")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}
