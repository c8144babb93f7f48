package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"storefront/internal/config"
	"storefront/internal/events"
	httpapi "storefront/internal/http"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"

	_ "storefront/docs"
)

// @title Storefront API
// @version 1.0
// @description Food ordering storefront: menu, session carts, orders and status workflow.
// @host localhost:9091
// @BasePath /api/v1
func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "storefront",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: cfg.AppEnv != "prod",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("fatal", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	store := repository.NewMemoryStore()
	ordersRepo := repository.NewMemoryOrders(store)
	tx := repository.NewMemoryTx(store)

	kv, closeKV, err := cartStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeKV()

	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.DialAMQP(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			// события best-effort: без брокера сервис продолжает работать
			log.Warn("rabbitmq unavailable, status events disabled", slog.Any("err", err))
		} else {
			defer p.Close()
			pub = p
		}
	}

	productsSvc := service.NewProductService(store)
	ordersSvc := service.NewOrderService(store, ordersRepo, tx, pub, log)
	cartsSvc := service.NewCartService(kv, store, ordersSvc, cfg.CartTTL, log)

	srv := httpapi.NewServer(productsSvc, ordersSvc, cartsSvc, log)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func cartStorage(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.KV, func(), error) {
	switch cfg.CartBackend {
	case config.CartBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, err
		}
		log.Info("cart storage: redis", slog.String("addr", cfg.RedisAddr))
		return repository.NewRedisKV(client, "storefront:", cfg.CartTTL), func() { client.Close() }, nil
	default:
		log.Info("cart storage: memory")
		return repository.NewMemoryKV(), func() {}, nil
	}
}
