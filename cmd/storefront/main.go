package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/juliodz03/websitetmdt-client/internal/cart"
	"github.com/juliodz03/websitetmdt-client/internal/config"
	"github.com/juliodz03/websitetmdt-client/internal/httpapi"
	"github.com/juliodz03/websitetmdt-client/internal/merge"
	"github.com/juliodz03/websitetmdt-client/internal/platform"
	"github.com/juliodz03/websitetmdt-client/internal/preview"
	"github.com/juliodz03/websitetmdt-client/internal/realtime"
	"github.com/juliodz03/websitetmdt-client/internal/session"
	"github.com/juliodz03/websitetmdt-client/internal/state"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	// Durable session state. Redis when reachable; an in-process store
	// keeps the service usable without it (sessions just won't survive a
	// restart).
	var store state.Store
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-memory session state",
			zap.String("addr", cfg.RedisAddr), zap.Error(err))
		store = state.NewMemoryStore()
	} else {
		logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		store = state.NewRedisStore(redisClient)
		defer redisClient.Close()
	}

	pc := platform.NewClient(cfg.APIBaseURL, cfg.RequestTimeout, logger)
	reconciler := merge.NewReconciler(pc, logger)

	newCart := func(sess *session.Session) *cart.Store {
		return cart.NewStore(pc, session.CartPersister{Store: store, SessionID: sess.ID}, logger)
	}
	newPrev := func(_ *session.Session) *preview.Engine {
		return preview.NewEngine(pc, logger)
	}
	sessions := session.NewManager(store, reconciler, newCart, newPrev, logger)

	reviews := realtime.NewFeed()

	handlers := httpapi.Handlers{
		Cart:     httpapi.NewCartHandler(pc, cfg.RequestTimeout, logger),
		Checkout: httpapi.NewCheckoutHandler(pc, sessions, cfg.RequestTimeout, logger),
		Auth:     httpapi.NewAuthHandler(pc, sessions, cfg.RequestTimeout, logger),
		Catalog:  httpapi.NewCatalogHandler(pc, reviews, cfg.RequestTimeout, logger),
	}

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(sessions, handlers, cfg.ServiceName),
	}

	consumerCtx, stopConsumer := context.WithCancel(ctx)
	consumer := realtime.NewConsumer(cfg.KafkaBrokers, cfg.ConsumerGroup, cfg.ReviewsTopic, logger)
	go func() {
		if err := consumer.Run(consumerCtx, reviews.Store); err != nil {
			logger.Warn("review consumer stopped", zap.Error(err))
		}
	}()

	go func() {
		logger.Info("storefront client listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopConsumer()

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}
