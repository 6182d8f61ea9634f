package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/auth"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/config"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/gateway"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/handler"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/presence"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/repository"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/router"
	"github.com/Zaroscript/polaris-travel-blog-sub000/internal/service"
	"github.com/Zaroscript/polaris-travel-blog-sub000/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := log.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Init(cfg.Log)
	logger := log.L()

	if cfg.Auth.Secret == "" {
		logger.Fatal().Msg("auth secret is required (set JWT_SECRET)")
	}

	ctx := context.Background()

	// Connect document store
	db, err := repository.Connect(ctx, cfg.Mongo)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to mongo")
	}
	defer db.Client().Disconnect(context.Background())
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure indexes")
	}
	logger.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongo")

	// Optional presence mirror
	var mirror presence.Mirror = presence.NopMirror{}
	if cfg.Presence.MirrorEnabled {
		mirror, err = presence.NewRedisMirror(cfg.Presence.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		logger.Info().Str("address", cfg.Presence.Redis.Address).Msg("presence mirror enabled")
	}
	defer mirror.Close()

	// Wire realtime core
	verifier := auth.NewVerifier([]byte(cfg.Auth.Secret), cfg.Auth.TokenTTL, cfg.Auth.Issuer)
	registry := presence.NewRegistry()
	events := router.New(registry)
	gw := gateway.New(verifier, registry, events, mirror, cfg.WebSocket)

	// Wire services and REST surface
	messages := repository.NewMongoMessageRepository(db)
	notifications := repository.NewMongoNotificationRepository(db)
	chatSvc := service.NewChatService(messages, notifications, events)
	notifSvc := service.NewNotificationService(notifications, messages, events)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), log.GinMiddleware(logger))

	httpHandler := handler.NewHTTPHandler(chatSvc, notifSvc, registry, verifier)
	httpHandler.RegisterRoutes(engine, gw.HandleWebSocket)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gw.Shutdown(shutdownCtx)
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
