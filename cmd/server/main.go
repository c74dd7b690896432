package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/api"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/config"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/repository"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/service"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/utils"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/worker"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}
	defer db.Close()

	// Set up redis for the mail queue and idempotency cache
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Printf("Warning: redis unavailable at %s: %v", cfg.Redis.Addr, err)
	}
	defer rdb.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	resetQueue := worker.NewQueue(rdb)
	svc := service.NewDefaultService(
		repo,
		resetQueue,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.AccessTokenExpireMinutes)*time.Minute,
		time.Duration(cfg.Auth.RefreshTokenExpireMinutes)*time.Minute,
	)

	// Start the background mailer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mailer := worker.NewMailer(rdb, cfg, utils.NewLogger("mailer"))
	go mailer.Run(ctx)

	// Create API handler
	handler := api.NewHandler(svc, api.IdempotencyMiddleware(rdb))

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", serverAddr)
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
