package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/beerpong/internal/api"
	"github.com/playmatatu/beerpong/internal/config"
	"github.com/playmatatu/beerpong/internal/database"
	"github.com/playmatatu/beerpong/internal/game"
	"github.com/playmatatu/beerpong/internal/logging"
	"github.com/playmatatu/beerpong/internal/migrations"
	"github.com/playmatatu/beerpong/internal/redis"
	"github.com/playmatatu/beerpong/internal/ws"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scenario := config.DefaultScenario()
	if cfg.ScenarioFile != "" {
		sc, err := config.LoadScenario(cfg.ScenarioFile)
		if err != nil {
			logger.Fatal("failed to load scenario", zap.String("file", cfg.ScenarioFile), zap.Error(err))
		}
		scenario = sc
		logger.Info("scenario loaded", zap.String("file", cfg.ScenarioFile), zap.String("name", sc.Name))
	}

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		logger.Info("running DB migrations on startup")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	mgr := game.NewManager(db, rdb, cfg, scenario, logger)
	hub := ws.NewHub(mgr, logger)
	mgr.SetSinkFactory(hub.Sink)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, db, cfg, mgr, hub)

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return mgr.Run(gctx) })
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return hub.StartEventSubscriber(gctx, rdb, mgr.InstanceID()) })
	g.Go(func() error { return game.StartIdleWorker(gctx, mgr, rdb, cfg, logger) })
	g.Go(func() error { return game.StartTrainerWorker(gctx, mgr, db, rdb, cfg, logger) })
	g.Go(func() error {
		logger.Info("starting beerpong server", zap.String("port", port), zap.String("instance", mgr.InstanceID()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mgr.Close()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}
