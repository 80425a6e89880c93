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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eldrgeek/frontrow/internal/config"
	"github.com/eldrgeek/frontrow/internal/handler"
	"github.com/eldrgeek/frontrow/internal/hub"
	"github.com/eldrgeek/frontrow/internal/relay"
	"github.com/eldrgeek/frontrow/internal/show"
	pkglog "github.com/eldrgeek/frontrow/pkg/log"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load configuration")
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("starting frontrow server")

	// Initialize hub
	wsHub := hub.NewHub(cfg.WebSocket)
	go wsHub.Run()

	// Initialize show orchestrator
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchestrator := show.New(show.Config{
		SeatCount:        cfg.Show.SeatCount,
		TickInterval:     cfg.Show.TickInterval,
		PostShowCooldown: cfg.Show.PostShowCooldown,
		MaxCountdown:     cfg.Show.MaxCountdown,
	}, wsHub, logger)
	go orchestrator.Run(ctx)

	// Initialize signaling relay
	signalRelay := relay.New(wsHub, logger)

	// Initialize handlers
	wsHandler := handler.NewWSHandler(wsHub, orchestrator, signalRelay)
	debugHandler := handler.NewDebugHandler(orchestrator)

	// Setup HTTP server
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(pkglog.GinMiddleware(logger))

	wsHandler.RegisterRoutes(router)
	debugHandler.RegisterRoutes(router)

	router.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().Str("host", cfg.Server.Host).Int("port", cfg.Server.Port).Msg("frontrow server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down frontrow server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("frontrow server stopped")
}
