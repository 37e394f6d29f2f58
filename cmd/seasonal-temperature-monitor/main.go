package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/seasonal-temperature-monitor/internal/api/http"
	"github.com/i474232898/seasonal-temperature-monitor/internal/climate/providers"
	"github.com/i474232898/seasonal-temperature-monitor/internal/config"
	"github.com/i474232898/seasonal-temperature-monitor/internal/dashboard"
	"github.com/i474232898/seasonal-temperature-monitor/internal/logging"
	"github.com/i474232898/seasonal-temperature-monitor/internal/scheduler"
	"github.com/i474232898/seasonal-temperature-monitor/internal/session"
	"github.com/i474232898/seasonal-temperature-monitor/internal/views"
)

const appName = "seasonal-temperature-monitor"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr := logging.New(os.Stdout, cfg.AppEnv, cfg.LogLevel, appName)

	if err := views.LoadTemplates(); err != nil {
		logr.Error("failed to load templates", "err", err)
		os.Exit(1)
	}

	// Shared HTTP client for the weather provider.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherBaseURL)

	// In-memory session store with idle expiry.
	sessions := session.NewMemoryStore(cfg.SessionMax, cfg.SessionTTL)

	service := dashboard.NewService(sessions, provider, cfg.Granularity, cfg.OpenWeatherAPIKey, logr)

	sched := scheduler.New(sessions, cfg.SessionSweepInterval, logr)
	if err := sched.Start(); err != nil {
		logr.Error("failed to start scheduler", "err", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		BodyLimit:             cfg.MaxUploadBytes,
		JSONEncoder:           json.Marshal,
		JSONDecoder:           json.Unmarshal,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":   "ok",
			"service":  appName,
			"sessions": sessions.Len(),
		})
	})

	httpapi.RegisterRoutes(app, service)

	go func() {
		logr.Info("listening", "port", cfg.Port, "granularity", cfg.Granularity)
		if err := app.Listen(":" + cfg.Port); err != nil {
			logr.Error("fiber server stopped", "err", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logr.Error("error during shutdown", "err", err)
	}
}
