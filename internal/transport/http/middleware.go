package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/auth"
	"github.com/peyk-chat/peyk-server/internal/store"
)

// ContextKeyUser is the gin context key for the authenticated user.
const ContextKeyUser = "user"

// AuthMiddleware validates the bearer access token and attaches the resolved
// user to the request context.
func AuthMiddleware(authService *auth.Service, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			logger.Debug().Msg("invalid authorization header format")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
			c.Abort()
			return
		}

		user, err := authService.Verify(c.Request.Context(), parts[1])
		if err != nil {
			logger.Debug().Err(err).Msg("invalid access token")
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authorization failed, please retry"})
			c.Abort()
			return
		}

		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

// currentUser pulls the authenticated user out of the gin context.
func currentUser(c *gin.Context) (*store.User, bool) {
	value, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	user, ok := value.(*store.User)
	return user, ok
}

// LoggerMiddleware logs HTTP requests after completion.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Msg("http request")
	}
}
