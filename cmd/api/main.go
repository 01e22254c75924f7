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

	"github.com/cimillas/storefront/services/api/internal/app"
	"github.com/cimillas/storefront/services/api/internal/auth"
	"github.com/cimillas/storefront/services/api/internal/clock"
	"github.com/cimillas/storefront/services/api/internal/config"
	"github.com/cimillas/storefront/services/api/internal/events"
	"github.com/cimillas/storefront/services/api/internal/ratelimit"
	"github.com/cimillas/storefront/services/api/internal/storage/postgres"
	transporthttp "github.com/cimillas/storefront/services/api/internal/transport/http"
	"github.com/cimillas/storefront/services/api/migrations"
)

func main() {
	bootLogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	config.LoadEnvFile(bootLogger)

	cfg, err := config.Load(bootLogger)
	if err != nil {
		bootLogger.Error("load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("api stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(startupCtx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	applied, err := migrations.Apply(startupCtx, pool)
	if err != nil {
		return err
	}
	for _, name := range applied {
		logger.Info("applied migration", "name", name)
	}

	clk := clock.NewSystem()
	tokens, err := auth.NewTokens(cfg.JWTSecret, clk, auth.WithTTL(cfg.TokenTTL))
	if err != nil {
		return err
	}

	var limiter ratelimit.Limiter = ratelimit.NewMemory(cfg.RateLimitRPS, cfg.RateLimitBurst, clk)
	if cfg.RedisURL != "" {
		redisLimiter, err := ratelimit.NewRedis(startupCtx, cfg.RedisURL, cfg.RateLimitBurst, time.Second, clk)
		if err != nil {
			return err
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		logger.Info("rate limiting through redis")
	}

	orderOpts := []app.OrderServiceOption{app.WithLogger(logger)}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("close kafka publisher", "error", err)
			}
		}()
		orderOpts = append(orderOpts, app.WithPublisher(publisher))
		logger.Info("publishing order events", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	users := app.NewUserService(postgres.NewUserRepository(pool), clk)
	catalog := app.NewCatalogService(postgres.NewProductRepository(pool), clk)
	orders := app.NewOrderService(postgres.NewOrderRepository(pool), users, catalog, tokens, clk, orderOpts...)
	// Runs before the publisher is closed.
	defer orders.Wait()

	server := &http.Server{
		Addr: ":" + cfg.Port,
		Handler: transporthttp.NewRouter(transporthttp.RouterConfig{
			Catalog:           catalog,
			Orders:            orders,
			Tokens:            tokens,
			Limiter:           limiter,
			CORSOrigins:       cfg.CORSOrigins,
			Logger:            logger,
			TrustProxyHeaders: cfg.TrustProxyHeaders,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("api listening", "port", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown", "error", err)
	}
	logger.Info("server stopped")
	return nil
}
