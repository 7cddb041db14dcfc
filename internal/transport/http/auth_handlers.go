package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/auth"
)

// AuthHandlers provides the two-phase OTP login endpoints.
type AuthHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAuthHandlers creates a new auth handlers instance.
func NewAuthHandlers(authService *auth.Service, logger *zerolog.Logger) *AuthHandlers {
	return &AuthHandlers{
		authService: authService,
		log:         logger,
	}
}

// SendOTPRequest represents the send-otp request body.
type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required,e164"`
}

// SendOTPResponse carries the OTP token the client must present with the
// code. The code is echoed back because SMS delivery is out of scope.
type SendOTPResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Code    string `json:"code"`
}

// CheckOTPRequest represents the check-otp request body.
type CheckOTPRequest struct {
	Token string `json:"token" binding:"required"`
	Code  string `json:"code" binding:"required,len=5,numeric"`
}

// CheckOTPResponse carries the long-lived access credential.
type CheckOTPResponse struct {
	Message     string `json:"message"`
	ID          int64  `json:"id"`
	Username    string `json:"username,omitempty"`
	AccessToken string `json:"accessToken"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// SendOTP issues a fresh OTP code for the phone number.
// POST /auth/send-otp
func (h *AuthHandlers) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid send-otp request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	grant, err := h.authService.SendOTP(c.Request.Context(), req.Phone)
	if err != nil {
		if errors.Is(err, auth.ErrOTPNotExpired) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "OTP code is not expired yet"})
			return
		}
		h.log.Error().Err(err).Msg("failed to issue otp")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("phone", req.Phone).Msg("otp issued")
	c.JSON(http.StatusOK, SendOTPResponse{
		Message: "OTP code sent successfully",
		Token:   grant.Token,
		Code:    grant.Code,
	})
}

// CheckOTP verifies the code and returns the access token.
// POST /auth/check-otp
func (h *AuthHandlers) CheckOTP(c *gin.Context) {
	var req CheckOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid check-otp request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	session, err := h.authService.CheckOTP(c.Request.Context(), req.Token, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrOTPExpired):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "OTP code expired"})
		case errors.Is(err, auth.ErrInvalidOTP):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Invalid OTP code"})
		case errors.Is(err, auth.ErrUnauthorized):
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
		default:
			h.log.Error().Err(err).Msg("failed to check otp")
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		}
		return
	}

	h.log.Info().Int64("user_id", session.UserID).Msg("user logged in")
	c.JSON(http.StatusOK, CheckOTPResponse{
		Message:     "You have logged in successfully",
		ID:          session.UserID,
		Username:    session.Username,
		AccessToken: session.AccessToken,
	})
}
