package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/store"
	"github.com/peyk-chat/peyk-server/internal/upload"
)

// UserHandlers provides profile management endpoints.
type UserHandlers struct {
	store store.UserStore
	saver *upload.Saver
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.UserStore, saver *upload.Saver, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{store: st, saver: saver, log: logger}
}

// UpdateUsernameRequest represents the username update body.
type UpdateUsernameRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
}

// Profile handles retrieving the caller's own profile.
// GET /user
func (h *UserHandlers) Profile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		return
	}
	c.JSON(http.StatusOK, user.Public())
}

// List handles retrieving every other user's public profile.
// GET /user/all
func (h *UserHandlers) List(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		return
	}

	users, err := h.store.ListUsers(c.Request.Context(), user.ID)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// UpdateUsername handles changing the caller's display name.
// PATCH /user/username
func (h *UserHandlers) UpdateUsername(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		return
	}

	var req UpdateUsernameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid username request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.store.UpdateUsername(c.Request.Context(), user.ID, req.Username); err != nil {
		if errors.Is(err, store.ErrDuplicateUsername) {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Duplicated username"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update username")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Username updated"})
}

// UpdateProfileImage handles uploading a new avatar.
// PATCH /user/profile-image
func (h *UserHandlers) UpdateProfileImage(c *gin.Context) {
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

	url, err := h.saver.Save(c, file, "profile-image")
	if err != nil {
		if errors.Is(err, upload.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported image type"})
			return
		}
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store profile image")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.UpdateProfileImage(c.Request.Context(), user.ID, url); err != nil {
		h.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update profile image")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Profile image updated successfully", "url": url})
}
