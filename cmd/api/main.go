package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"coachmedia/config"
	"coachmedia/internal/auth"
	"coachmedia/internal/handler"
	"coachmedia/internal/middleware"
	"coachmedia/internal/persistence"
	"coachmedia/internal/picker"
	"coachmedia/internal/queue"
	"coachmedia/internal/transport"
	"coachmedia/internal/validator"
	"coachmedia/internal/websocket"
	"coachmedia/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	mode := logger.DevelopmentMode
	if cfg.AppMode == "release" {
		mode = logger.ProductionMode
		gin.SetMode(gin.ReleaseMode)
	}
	l := logger.New(mode)
	logger.SetGlobalLogger(l)

	ctx := context.Background()

	redisClient := persistence.NewRedisClient(persistence.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	store := persistence.NewRedisStore(redisClient, "")
	if err := store.Ping(ctx); err != nil {
		l.Warnf("redis unreachable, queue persistence is best-effort: %v", err)
	}

	s3Transport, err := transport.NewS3Transport(ctx, transport.S3Config{
		Region:    cfg.S3Region,
		Bucket:    cfg.S3Bucket,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Endpoint:  cfg.S3Endpoint,
	})
	if err != nil {
		log.Fatalf("Failed to configure S3 transport: %v", err)
	}

	q := queue.NewManager(store, s3Transport, l, queue.Config{
		MaxQueueSize: cfg.Upload.MaxQueueSize,
		Constraints: validator.Constraints{
			MaxFileSizeBytes: cfg.Upload.MaxFileSizeBytes,
			AllowedMimeTypes: cfg.Upload.AllowedMimeTypes,
		},
		MaxRetries:     cfg.Upload.MaxRetries,
		RetryBaseDelay: cfg.Upload.RetryBaseDelay,
		AutoUpload:     cfg.Upload.AutoUpload,
	})

	if err := q.Restore(ctx); err != nil {
		l.Warnf("failed to restore persisted queue: %v", err)
	}
	if cfg.Upload.AutoUpload {
		go q.UploadAll(context.Background())
	}

	tokens := auth.NewTokenService(cfg.JWTSecret)
	hub := websocket.NewHub()
	feed := websocket.NewQueueFeed(hub, q, l)
	feed.Start()
	defer feed.Stop()

	queueHandler := handler.NewQueueHandler(q, picker.NewFSPicker())
	wsHandler := websocket.NewHandler(tokens, hub, feed)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.LoggingMiddleware(l))
	r.Use(middleware.ErrorHandler(l))

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
	r.GET("/ws", wsHandler.Connect)

	api := r.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(tokens))
	{
		api.POST("/uploads", queueHandler.Add)
		api.POST("/uploads/local", queueHandler.AddLocal)
		api.GET("/uploads", queueHandler.List)
		api.DELETE("/uploads/:id", queueHandler.Remove)
		api.DELETE("/uploads", queueHandler.Clear)
		api.POST("/uploads/:id/retry", queueHandler.Retry)
		api.POST("/uploads/process", queueHandler.Process)
	}

	l.Infof("Starting media pipeline server on port %s", cfg.AppPort)
	if err := r.Run(fmt.Sprintf(":%s", cfg.AppPort)); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
