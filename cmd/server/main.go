package main // Entry point package

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/recykl/fleet-registry/internal/cache"
	"github.com/recykl/fleet-registry/internal/config"
	"github.com/recykl/fleet-registry/internal/database"
	"github.com/recykl/fleet-registry/internal/handler"
	"github.com/recykl/fleet-registry/internal/logging"
	mw "github.com/recykl/fleet-registry/internal/middleware"
	"github.com/recykl/fleet-registry/internal/queue"
	"github.com/recykl/fleet-registry/internal/repository"
	"github.com/recykl/fleet-registry/internal/router"
	"github.com/recykl/fleet-registry/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()
	rlCfg := config.LoadRateLimitConfig()
	cacheCfg := config.LoadCacheConfig()

	logger := logging.New(cfg.Env == "dev")
	defer func() { _ = logger.Sync() }()
	sugar := logger.Sugar()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis is optional: when unavailable the rate limiter falls back to
	// the in-process counter.
	rdb := config.NewRedisClient()
	if rdb == nil {
		sugar.Warn("redis unavailable, rate limiter using in-process counter")
	}

	// Telemetry caches are explicit instances with process lifecycle, not
	// globals; handlers receive them by injection.
	healthCache := cache.New[handler.HealthReport](cacheCfg.HealthTTL, cacheCfg.Sweep)
	defer healthCache.Close()
	summaryCache := cache.New[handler.SummaryPage](cacheCfg.SummaryTTL, cacheCfg.Sweep)
	defer summaryCache.Close()

	users := repository.NewUserRepo(db)
	devices := repository.NewDeviceRepo(db)
	telemetry := repository.NewTelemetryRepo(db)
	alerts := service.NewAlertPublisher(sugar)

	authH := handler.NewAuthHandler(cfg, users, sugar)
	deviceH := handler.NewDeviceHandler(devices, telemetry, healthCache, summaryCache, alerts, sugar)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))

	router.RegisterGlobal(e, cfg.CORSOrigin)
	router.RegisterAuth(e, authH)
	limiter := mw.NewRateLimiter(rlCfg, mw.NewCounter(rdb))
	router.RegisterDevices(e, deviceH, cfg.JWTSecret, limiter)

	// Background consumer writing alert lines; runs its own reconnect
	// loop for the life of the process.
	go queue.StartAlertConsumer(sugar)

	addr := ":" + cfg.Port
	sugar.Infow("listening", "addr", addr, "env", cfg.Env)

	go func() {
		if err := e.Start(addr); err != nil {
			sugar.Infow("server stopped", "err", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		sugar.Errorw("shutdown failed", "err", err)
	}
}
