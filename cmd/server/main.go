package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MickeyDagm/MDAFOnlineTutor/internal/config"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/database"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/metrics"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/realtime"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/routes"
	"github.com/MickeyDagm/MDAFOnlineTutor/internal/services"
	"github.com/MickeyDagm/MDAFOnlineTutor/pkg/logger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		log.Printf("server exited: %v", err)
		os.Exit(1)
	}
}

// run owns every resource so its deferred cleanup runs on any failure.
func run() error {
	// 1. Load Config
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() {
		_ = zl.Sync()
	}()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to Database
	if cfg.DBUrl == "" {
		zl.Error("DB_URL is required")
		return errors.New("DB_URL is required")
	}
	pool, err := database.Connect(ctx, cfg.DBUrl, zl)
	if err != nil {
		zl.Error("failed to connect to database", zap.Error(err))
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := database.ConnectRedis(ctx, cfg.RedisURL, zl)
	if err != nil {
		zl.Error("failed to connect to redis", zap.Error(err))
		return fmt.Errorf("connect redis: %w", err)
	}

	// 3. Realtime
	hub := realtime.NewHub(zl.Named("realtime"))
	go hub.Run(ctx)

	var broadcaster services.Broadcaster = hub
	if redisClient != nil {
		defer func() {
			_ = redisClient.Close()
		}()
		broadcaster = realtime.NewRedisPublisher(redisClient)
		go realtime.NewRedisRelay(redisClient, hub, zl.Named("relay")).Run(ctx)
	}

	// 4. Setup Fiber
	registry := metrics.New()
	app := fiber.New(fiber.Config{
		AppName:      "mdaf-online-tutor",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New())
	app.Use(logger.FiberMiddleware(zl))
	app.Use(registry.Middleware())

	if err := routes.RegisterRoutes(app, routes.Dependencies{
		Config:      cfg,
		DB:          pool,
		Hub:         hub,
		Broadcaster: broadcaster,
		Metrics:     registry,
		Logger:      zl,
	}); err != nil {
		zl.Error("failed to register routes", zap.Error(err))
		return fmt.Errorf("register routes: %w", err)
	}

	// 5. Start Server
	errCh := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			zl.Error("server stopped", zap.Error(err))
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		zl.Info("shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			zl.Error("graceful shutdown failed", zap.Error(err))
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
