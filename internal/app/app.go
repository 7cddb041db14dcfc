package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/peyk-chat/peyk-server/internal/auth"
	"github.com/peyk-chat/peyk-server/internal/config"
	"github.com/peyk-chat/peyk-server/internal/core"
	"github.com/peyk-chat/peyk-server/internal/store"
	"github.com/peyk-chat/peyk-server/internal/store/sqlite"
	transporthttp "github.com/peyk-chat/peyk-server/internal/transport/http"
	"github.com/peyk-chat/peyk-server/internal/upload"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	tokens := &auth.TokenConfig{
		OTPSecret:    []byte(cfg.OTPSecret),
		AccessSecret: []byte(cfg.AccessSecret),
		Issuer:       cfg.JWTIssuer,
		Audience:     cfg.JWTAudience,
		OTPTTL:       cfg.OTPTTL,
		AccessTTL:    cfg.AccessTTL,
	}
	authService := auth.NewService(st, tokens)

	saver, err := upload.NewSaver(cfg.UploadDir, "/uploads", upload.DefaultMaxBytes)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("init uploads: %w", err)
	}

	presence := core.NewMemoryPresence()
	hub := core.NewHub(st, presence, logger, cfg.IdentityWaitTimeout)
	server := transporthttp.NewServer(hub, authService, st, saver, cfg, logger)

	return &App{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
