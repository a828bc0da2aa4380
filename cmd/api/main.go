/**
 * @description
 * This is the main entry point for the API server. It initializes and
 * wires together all the components of the application, including the
 * configuration, database connection, redis, payment provider client,
 * broker producer, repository, services, and the HTTP router, and then
 * starts the HTTP server to listen for incoming requests.
 */
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/agpatowary/mind-mortal-clone-sub001/internal/api"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/app"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/config"
	"github.com/agpatowary/mind-mortal-clone-sub001/internal/store"
	"github.com/agpatowary/mind-mortal-clone-sub001/pkg/rabbitmq"
	"github.com/agpatowary/mind-mortal-clone-sub001/pkg/stripeclient"
)

func main() {
	// Load .env file for local development.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Load application configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Establish connection to the PostgreSQL database with connection pool configuration
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Use simple protocol to work with transaction-pooling connection
	// poolers, which reject prepared statements (SQLSTATE 42P05).
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	// Database tables are created via the hosted platform's migrations.

	// Like-toggle rate limiting is optional; without redis the limiter
	// is a no-op.
	var limiter app.ToggleRateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()
		limiter = app.NewRedisToggleRateLimiter(redisClient, "mmortal:rate_limit")
		logger.Info("redis rate limiter enabled")
	}

	// Broker producer for subscription activation events. Fall back to
	// a logging publisher so billing keeps working without the broker.
	var producer rabbitmq.Publisher
	if p, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL); err != nil {
		logger.Warn("rabbitmq unavailable, events will be dropped", "error", err)
		producer = &rabbitmq.LoggingPublisher{Logger: logger}
	} else {
		producer = p
		logger.Info("rabbitmq producer connected")
	}
	defer producer.Close()

	// Initialize application layers
	repository := store.NewRepository(dbpool)
	provider := stripeclient.New(cfg.StripeSecretKey)

	billing := app.NewBillingService(repository, provider, logger)
	likes := app.NewLikeService(repository, limiter, cfg.LikeToggleLimitPerMinute, logger)
	posts := app.NewPostService(repository)
	webhook := app.NewWebhookProcessor(repository, producer, cfg.StripeWebhookSecret, logger)

	handler := api.NewHandler(billing, likes, posts, webhook, cfg.AppBaseURL, logger)
	router := api.NewRouter(handler, api.AuthConfig{
		JWKSURL:          cfg.AuthJWKSURL,
		ExpectedIssuer:   cfg.AuthIssuer,
		ExpectedAudience: cfg.AuthAudience,
	})

	// Configure and start the HTTP server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for an OS signal
	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
