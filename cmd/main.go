package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/sparkmatch/messaging-service/internal/api"
	"github.com/sparkmatch/messaging-service/internal/auth"
	"github.com/sparkmatch/messaging-service/internal/cache"
	"github.com/sparkmatch/messaging-service/internal/config"
	"github.com/sparkmatch/messaging-service/internal/events"
	"github.com/sparkmatch/messaging-service/internal/logger"
	"github.com/sparkmatch/messaging-service/internal/profile"
	"github.com/sparkmatch/messaging-service/internal/push"
	"github.com/sparkmatch/messaging-service/internal/repository"
	"github.com/sparkmatch/messaging-service/internal/service"
	"github.com/sparkmatch/messaging-service/internal/ws"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	zlog, err := logger.New(cfg.App.Env, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx := context.Background()

	mc, err := repository.NewMongoClient(ctx, cfg.Mongo.URI)
	if err != nil {
		zlog.Fatalw("mongo init", "error", err)
	}
	defer func() { _ = mc.Disconnect(context.Background()) }()

	store := repository.NewMongoStore(mc.Database(cfg.Mongo.Database), zlog)
	if err := store.EnsureIndexes(ctx); err != nil {
		zlog.Fatalw("mongo indexes", "error", err)
	}

	var rds *cache.Client
	if cfg.Redis.Addr != "" {
		rds, err = cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			zlog.Fatalw("redis init", "error", err)
		}
		defer rds.Close()
	}

	var producer *events.Producer
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent)
		defer producer.Close()
	}

	directory := profile.NewHTTPDirectory(cfg.Profiles.BaseURL, cfg.ProfileTimeout, zlog)
	channel := push.NewHTTPChannel(cfg.Push.Endpoint, cfg.Push.ServerKey, cfg.PushTimeout, cfg.Push.RatePerSecond)
	notifier := push.NewNotifier(channel, directory, zlog)

	hub := ws.NewHub(zlog)
	verifier := auth.NewVerifier(cfg.App.JWTSecret)

	var svcEvents service.EventPublisher
	if producer != nil {
		svcEvents = producer
	}
	svc := service.NewChatService(store, store, store, directory, hub, notifier, svcEvents, zlog)

	var presence ws.Presence
	if rds != nil {
		presence = rds
	}
	wsrv := ws.NewServer(hub, svc, presence, verifier, zlog)

	var limiter api.RateLimiter
	if rds != nil {
		limiter = rds
	}
	app := api.NewServer(api.ServerDeps{
		Service:           svc,
		WS:                wsrv,
		Verifier:          verifier,
		Limiter:           limiter,
		MessagesPerMinute: cfg.RateLimit.MessagesPerMinute,
		HealthCheck: func(ctx context.Context) error {
			return mc.Ping(ctx, nil)
		},
		Log: zlog,
	})

	go func() {
		addr := fmt.Sprintf(":%d", cfg.App.Port)
		if err := app.Listen(addr); err != nil {
			zlog.Fatalw("server listen", "error", err)
		}
	}()
	zlog.Infow("messaging-service started", "port", cfg.App.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = app.ShutdownWithContext(shutdownCtx)
	zlog.Info("messaging-service stopped")
}
