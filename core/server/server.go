package server

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"meetbook/core/bus"
	"meetbook/core/cache"
	"meetbook/core/config"
	"meetbook/core/database"
	"meetbook/core/logger"
	"meetbook/core/middleware"
	"meetbook/core/storage"
	"meetbook/modules/auth"
	"meetbook/modules/availability"
	"meetbook/modules/booking"
	"meetbook/modules/document"
	"meetbook/modules/meetingtype"
	"meetbook/modules/notification"
	"meetbook/modules/realtime"
)

const (
	janitorInterval = time.Minute
	shutdownTimeout = 10 * time.Second
)

// Run wires the whole application and blocks until SIGINT/SIGTERM.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Server.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := database.Migrate(ctx, &db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	redisCache, err := cache.Init(cfg.Redis.URL)
	if err != nil {
		return err
	}
	defer redisCache.Close()

	eventBus := bus.New(redisCache.Client())
	eventBus.StartJanitor(ctx, janitorInterval)

	archive := storage.New(cfg.S3)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			logger.Info("Server:Request",
				"method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	if len(cfg.Server.CORSOrigins) > 0 {
		e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
			AllowOrigins: cfg.Server.CORSOrigins,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware(cfg)

	userRepo := auth.Init(e, &db, cfg)
	meetingTypeRepo := meetingtype.Init(e, &db, eventBus, mw)
	availabilitySvc := availability.Init(e, &db, userRepo, mw)

	documents := document.Init(ctx, e, &db, eventBus, archive, redisCache, cfg)
	booking.Init(ctx, e, &db, eventBus, availabilitySvc, meetingTypeRepo, userRepo, documents.Documents, mw)
	realtime.Init(e, eventBus, meetingTypeRepo)

	notifications, err := notification.Init(ctx, eventBus, cfg)
	if err != nil {
		return err
	}
	defer notifications.Shutdown()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server:Run:Listening", "addr", addr, "environment", cfg.Server.Environment)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Server:Run:ShuttingDown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server:Run:Shutdown:Error", "error", err)
		return err
	}
	logger.Info("Server:Run:Stopped")
	return nil
}
