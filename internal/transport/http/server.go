package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/auth"
	"github.com/peyk-chat/peyk-server/internal/config"
	"github.com/peyk-chat/peyk-server/internal/core"
	"github.com/peyk-chat/peyk-server/internal/store"
	"github.com/peyk-chat/peyk-server/internal/upload"
)

// NewServer builds the HTTP server with the REST and websocket routes.
func NewServer(hub *core.Hub, authService *auth.Service, st store.Store, saver *upload.Saver, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), LoggerMiddleware(logger))

	engine.GET("/health", healthHandler)

	otpLimiter := newRateLimiter(cfg.OTPRateLimit)
	otpLimiter.start()

	authHandlers := NewAuthHandlers(authService, logger)
	authGroup := engine.Group("/auth")
	{
		authGroup.POST("/send-otp", rateLimitMiddleware(otpLimiter), authHandlers.SendOTP)
		authGroup.POST("/check-otp", authHandlers.CheckOTP)
	}

	authorized := AuthMiddleware(authService, logger)

	userHandlers := NewUserHandlers(st, saver, logger)
	userGroup := engine.Group("/user", authorized)
	{
		userGroup.GET("", userHandlers.Profile)
		userGroup.GET("/all", userHandlers.List)
		userGroup.PATCH("/username", userHandlers.UpdateUsername)
		userGroup.PATCH("/profile-image", userHandlers.UpdateProfileImage)
	}

	roomHandlers := NewRoomHandlers(st, logger)
	roomGroup := engine.Group("/room", authorized)
	{
		roomGroup.POST("", roomHandlers.Create)
		roomGroup.GET("/all", roomHandlers.List)
	}

	messageHandlers := NewMessageHandlers(saver, logger)
	engine.POST("/message/image-uploader", authorized, messageHandlers.UploadImage)

	engine.Static("/uploads", saver.Dir())

	wsHandler := NewWSHandler(hub, authService, logger)
	engine.GET("/ws", gin.WrapH(wsHandler))

	srv := &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           engine,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	srv.RegisterOnShutdown(otpLimiter.Close)
	return srv
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
