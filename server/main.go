package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cineseat/api/routes"
	"cineseat/internal/messaging"
	"cineseat/internal/seats"
	"cineseat/internal/shared/config"
	"cineseat/internal/shared/database"
	"cineseat/internal/shared/middleware"
	"cineseat/pkg/logger"
	"cineseat/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("Invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("Failed to initialize database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	rateLimiter := ratelimit.NewRateLimiter(db.Redis, cfg.RateLimit)
	if rateLimiter.Enabled() {
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
			slog.Int("hold_requests", cfg.RateLimit.HoldRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	var publisher seats.EventPublisher
	if cfg.Kafka.Enabled {
		producer, err := newSeatEventProducer(cfg)
		if err != nil {
			appLogger.Error("Failed to initialize seat event producer", slog.Any("error", err))
			appLogger.Info("Continuing without seat events")
		} else {
			publisher = producer
			defer func() {
				if err := producer.Close(); err != nil {
					appLogger.Error("Error closing seat event producer", slog.Any("error", err))
				}
			}()
		}
	}

	appRouter := routes.NewRouter(cfg, db, publisher, rateLimiter)
	services := appRouter.Services()

	jobCtx, jobCancel := context.WithCancel(context.Background())
	defer jobCancel()

	sweeper := seats.NewSweeper(services.Seats, cfg.Hold.SweepInterval)
	sweeper.Start(jobCtx)
	defer sweeper.Stop()

	if services.Scheduler != nil {
		services.Scheduler.Start(jobCtx)
		defer services.Scheduler.Stop()
	}

	if cfg.Kafka.Enabled {
		consumer, err := messaging.NewPaymentConsumer(paymentConsumerConfig(cfg), services.Checkout)
		if err != nil {
			appLogger.Error("Failed to initialize payment consumer", slog.Any("error", err))
			appLogger.Info("Continuing without payment events - carts are confirmed over HTTP only")
		} else {
			consumer.Start(jobCtx)
			defer func() {
				appLogger.Info("Stopping payment consumer...")
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping payment consumer", slog.Any("error", err))
				}
			}()
		}
	}

	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        setupEngine(appRouter, rateLimiter),
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("database", db.Driver),
			slog.Bool("redis", db.Redis != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
			slog.Bool("tx_supported", cfg.Reconcile.TxSupported),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func setupEngine(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	engine.Use(middleware.RequestID(), middleware.RequestLogger(appLogger), gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter.Enabled() {
		engine.Use(ratelimit.Middleware(rateLimiter))
	}

	appRouter.SetupRoutes(engine)
	return engine
}

func newSeatEventProducer(cfg *config.Config) (*messaging.SeatEventProducer, error) {
	producerCfg := messaging.DefaultProducerConfig()
	producerCfg.Brokers = cfg.Kafka.Brokers
	producerCfg.ClientID = cfg.Kafka.ClientID
	producerCfg.Topic = cfg.Kafka.SeatEventsTopic
	return messaging.NewSeatEventProducer(producerCfg)
}

func paymentConsumerConfig(cfg *config.Config) *messaging.ConsumerConfig {
	consumerCfg := messaging.DefaultConsumerConfig()
	consumerCfg.Brokers = cfg.Kafka.Brokers
	consumerCfg.ClientID = cfg.Kafka.ClientID
	consumerCfg.GroupID = cfg.Kafka.ConsumerGroup
	consumerCfg.Topics = []string{cfg.Kafka.PaymentEventsTopic}
	return consumerCfg
}
