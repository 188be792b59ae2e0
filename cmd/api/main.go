package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/simples-batch/internal/api"
	"github.com/nexconsult/simples-batch/internal/api/handlers"
	"github.com/nexconsult/simples-batch/internal/cache"
	"github.com/nexconsult/simples-batch/internal/config"
	"github.com/nexconsult/simples-batch/internal/jobs"
	"github.com/nexconsult/simples-batch/internal/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Simples batch API server...")

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Cache store: Redis when configured, local file otherwise
	var store cache.Store
	var admin handlers.CacheAdmin
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		redisStore := cache.NewRedisStore(client, cfg.Redis.HashKey, logger)
		store, admin = redisStore, redisStore
		logger.WithField("addr", cfg.Redis.Addr).Info("Using Redis cache store")
	} else {
		fileStore := cache.NewFileStore(cfg.Engine.CachePath, logger)
		store, admin = fileStore, fileStore
		logger.WithField("path", cfg.Engine.CachePath).Info("Using file cache store")
	}

	// Each job builds its own pacer/resolver from the requested delay;
	// only the cache store and the breaker are shared.
	registry := jobs.NewRegistry(jobs.NewEngineFactory(cfg, store, logger), logger)

	server := api.NewServer(cfg, logger, registry, admin)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      server.Router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":        cfg.Server.Port,
			"environment": cfg.Server.Environment,
		}).Info("Server starting...")

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
