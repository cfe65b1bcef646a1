package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mongodb-rest/internal/di"
	httpadapter "mongodb-rest/internal/gateway/adapter/http"
	"mongodb-rest/internal/gateway/adapter/persistence/mongodb"
	"mongodb-rest/internal/gateway/config"
	"mongodb-rest/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.NewLoggerForBackend(cfg.Log.Backend, cfg.Log.Level, cfg.Log.Format)
	appLogger.Info("Application configuration loaded successfully")

	container := di.NewContainer(cfg, appLogger)
	defer func() {
		if err := container.Close(); err != nil {
			appLogger.Errorf("Failed to close container: %v", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := container.InitializeRedis(ctx); err != nil {
		log.Fatalf("Failed to initialize Redis: %v", err)
	}
	if err := container.InitializeGateway(mongodb.NewConnector(&cfg.Mongo, appLogger)); err != nil {
		log.Fatalf("Failed to initialize gateway module: %v", err)
	}
	appLogger.Info("Gateway module initialized successfully")

	app := fiber.New(fiber.Config{
		AppName:      "MongoDB REST Gateway",
		UnescapePath: true,
		Immutable:    true,
		BodyLimit:    cfg.Server.BodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		ErrorHandler: httpadapter.NewErrorHandler(appLogger),
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.Server.CORSOrigins,
		AllowMethods:  "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:  "Origin, Content-Type, Accept, " + httpadapter.HeaderRequestID,
		ExposeHeaders: "Location, Allow, " + httpadapter.HeaderRequestID,
	}))
	app.Use(httpadapter.RequestIDMiddleware())
	app.Use(httpadapter.AccessLogMiddleware(appLogger))

	container.GetGatewayModule().RegisterRoutes(app)

	serverAddr := cfg.Server.Addr()
	appLogger.Infof("Starting HTTP server on %s", serverAddr)

	serverShutdown := make(chan error, 1)
	go func() {
		serverShutdown <- app.Listen(serverAddr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverShutdown:
		if err != nil {
			appLogger.Errorf("Server failed to start: %v", err)
			return
		}
	case sig := <-quit:
		appLogger.Infof("Received shutdown signal: %v", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			appLogger.Errorf("Server forced to shutdown: %v", err)
		}
		appLogger.Info("HTTP server stopped")
	}

	fmt.Println("Application stopped gracefully.")
}
