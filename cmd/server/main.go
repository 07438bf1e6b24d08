package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gcforum/portal/internal/cache"
	"github.com/gcforum/portal/internal/config"
	"github.com/gcforum/portal/internal/database"
	"github.com/gcforum/portal/internal/logger"
	"github.com/gcforum/portal/internal/routes"
	"github.com/gcforum/portal/internal/services"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	log := logger.Get()
	log.WithField("tier", cfg.Tier().String()).Info("Starting application")

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	backend, err := database.Open(cfg)
	if err != nil {
		log.Errorf("Failed to connect to database, serving fallback data: %v", err)
		backend = database.New(nil, nil)
	}
	defer backend.Close()

	if backend.Configured() {
		if err := backend.Migrate(); err != nil {
			log.Errorf("Failed to migrate database: %v", err)
		} else {
			log.Info("Database initialized successfully")
		}
	} else {
		log.Warn("No database credentials configured; public pages use built-in data")
	}
	if !cfg.AuthConfigured() {
		log.Warn("Authentication is not configured; sign-in is disabled")
	}

	store := cache.New(cfg)
	mailer := services.NewEmailService(cfg)
	svc := routes.NewServices(cfg, backend, store, mailer)

	// Setup router
	router := routes.SetupRouter(cfg, backend, store, svc)

	srv := &http.Server{
		Addr:              cfg.Address(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Server starting on %s", cfg.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
}
