package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tidemann/chorewheel/internal/database"
	"github.com/tidemann/chorewheel/internal/logging"
	"github.com/tidemann/chorewheel/internal/server"
)

func main() {
	port := os.Getenv("CHOREWHEEL_PORT")
	if port == "" {
		port = "8080"
	}

	dbPath := os.Getenv("CHOREWHEEL_DB_PATH")
	if dbPath == "" {
		dbPath = "chorewheel.db"
	}

	logger := logging.Setup(os.Getenv("CHOREWHEEL_LOG_LEVEL"))

	db, err := database.Open(dbPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := server.New(db, logger)

	// Periodic cleanup of expired sessions and stale rate-limit entries
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := srv.SessionStore().DeleteExpired(); err != nil {
				logger.Error("delete expired sessions", "error", err)
			}
			srv.RateLimiter().Cleanup()
		}
	}()

	httpServer := &http.Server{
		Addr:         ":" + port,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("chorewheel listening", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
