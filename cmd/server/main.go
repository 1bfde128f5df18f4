package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/warefront/api/internal/broker"
	"github.com/warefront/api/internal/config"
	"github.com/warefront/api/internal/database"
	"github.com/warefront/api/internal/events"
	"github.com/warefront/api/internal/handler"
	"github.com/warefront/api/internal/notification"
	"github.com/warefront/api/internal/redisclient"
	"github.com/warefront/api/internal/router"
	"github.com/warefront/api/internal/service"
	"github.com/warefront/api/internal/ws"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log := newLogger(cfg.Env)
	defer log.Sync() //nolint:errcheck

	if err := runMigrations(cfg); err != nil {
		log.Fatal("run migrations", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		cancel()
		log.Fatal("create connection pool", zap.Error(err))
	}
	if err := pool.Ping(ctx); err != nil {
		cancel()
		log.Fatal("ping database", zap.Error(err))
	}
	cancel()
	defer pool.Close()

	queries := database.New(pool)

	hub := ws.NewHub()
	go hub.Run()

	var producer events.StreamProducer
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaProducer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaProducer.Close() //nolint:errcheck
		producer = kafkaProducer
		log.Info("kafka producer enabled", zap.Strings("brokers", cfg.Kafka.Brokers))
	}
	bus := events.NewBus(hub, producer, log)

	var queue notification.Queue
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Fatal("connect redis", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
		queue = redisClient
		log.Info("redis notification queue enabled", zap.String("addr", cfg.Redis.Addr))
	}
	notifier := notification.NewService(queries, queue, log)

	orderSvc := service.NewOrderService(
		pool,
		func(db database.DBTX) service.OrderStore { return database.New(db) },
		bus, notifier, log,
	)
	stockSvc := service.NewStockService(
		pool,
		func(db database.DBTX) service.StockStore { return database.New(db) },
		log,
	)
	qualitySvc := service.NewQualityService(queries, log)

	mux := router.New(router.Handlers{
		Auth:          handler.NewAuthHandler(queries, cfg.JWTSecret, log),
		Orders:        handler.NewOrderHandler(orderSvc, queries, log),
		Stock:         handler.NewStockHandler(stockSvc, log),
		Quality:       handler.NewQualityHandler(qualitySvc, log),
		Admin:         handler.NewAdminHandler(queries, stockSvc, bus, log),
		Notifications: handler.NewNotificationHandler(queries, log),
		Dashboard:     handler.NewDashboardHandler(queries, stockSvc, log),
		Hub:           hub,
		JWTSecret:     cfg.JWTSecret,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  90 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("listen and serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown", zap.Error(err))
	}
}

func newLogger(env string) *zap.Logger {
	if env == "production" {
		log, err := zap.NewProduction()
		if err != nil {
			panic(err)
		}
		return log
	}
	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	return log
}

func runMigrations(cfg *config.Config) error {
	m, err := migrate.New("file://"+cfg.MigrationsDir, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer m.Close() //nolint:errcheck
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
