package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tutorfinder/internal/config"
	"tutorfinder/internal/database"
	"tutorfinder/internal/handlers"
	"tutorfinder/internal/logger"
	"tutorfinder/internal/middleware"
	"tutorfinder/internal/repositories"
	"tutorfinder/internal/services"
	"tutorfinder/pkg/rabbitmq"
)

// bodyLimit leaves room for provider images sent inline as data URLs.
const bodyLimit = 10 * 1024 * 1024

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	logCloser := logger.Setup(cfg.Log)
	defer logCloser.Close()

	// --- Database ---
	db, err := database.Open(cfg.DB, logger.GormLogger())
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logrus.WithError(err).Fatal("failed to migrate database")
	}

	// --- Initialize RabbitMQ Client ---
	// Events are optional: without RABBITMQ_URL the directory works the same,
	// clients just have to poll.
	var publisher services.EventPublisher
	if cfg.MQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.MQ.URL, Exchange: cfg.MQ.Exchange})
		if err != nil {
			logrus.WithError(err).Warn("RabbitMQ unavailable, directory events disabled")
		} else {
			defer mqClient.Close()
			publisher = mqClient
			startEventLog(mqClient)
		}
	}

	app := NewApp(cfg, db, publisher)

	// --- Start HTTP Server ---
	logrus.WithField("port", cfg.App.Port).Info("starting server")

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(cfg.App.Port); err != nil {
			logrus.WithError(err).Fatal("server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	<-quit
	logrus.Info("shutting down server")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logrus.WithError(err).Error("error during Fiber shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	logrus.Info("server gracefully stopped")
}

// NewApp wires repositories, services and handlers into a Fiber app.
// publisher may be nil to disable directory events.
func NewApp(cfg *config.Config, db *gorm.DB, publisher services.EventPublisher) *fiber.App {
	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	providerRepo := repositories.NewGORMProviderRepository(db)
	reviewRepo := repositories.NewGORMReviewRepository(db)

	// --- Initialize Services ---
	authService := services.NewAuthService(userRepo, cfg.Auth.BcryptCost)
	providerService := services.NewProviderService(providerRepo, publisher)
	reviewService := services.NewReviewService(reviewRepo, publisher)
	adminService := services.NewAdminService(userRepo, providerRepo, publisher)

	metrics := middleware.NewMetrics(cfg.App.Name)

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	providerHandler := handlers.NewProviderHandler(providerService, metrics)
	reviewHandler := handlers.NewReviewHandler(reviewService, metrics)
	statsHandler := handlers.NewStatsHandler(adminService, metrics)

	// --- Initialize Fiber App ---
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    bodyLimit,
		ErrorHandler: errorHandler,
	})

	// --- Middleware ---
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestLogger())
	app.Use(metrics.Middleware())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORS.Origins,
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// --- API Routes ---
	api := app.Group("/api")
	authHandler.RegisterRoutes(api)
	providerHandler.RegisterRoutes(api)
	reviewHandler.RegisterRoutes(api)
	statsHandler.RegisterRoutes(api)

	// --- Health Check Endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := database.Ping(ctx, db); err != nil {
			logrus.WithError(err).Warn("health check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "unreachable",
			})
		}
		return c.JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "connected",
		})
	})

	app.Get("/metrics", metrics.Handler())

	return app
}

// errorHandler answers errors that escaped the handlers (unknown routes, panics)
// with the same {error} body the handlers use.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	if code >= fiber.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.Path()).Error("unhandled error")
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

// startEventLog consumes every directory event the server itself publishes
// and logs it, which makes the exchange wiring visible in the server log.
func startEventLog(mqClient *rabbitmq.Client) {
	err := mqClient.Consume("", rabbitmq.BindAll, func(evt rabbitmq.DirectoryEvent) error {
		logrus.WithFields(logrus.Fields{
			"event":       evt.Type,
			"provider_id": evt.ProviderID,
			"user_id":     evt.UserID,
		}).Debug("directory event")
		return nil
	})
	if err != nil {
		logrus.WithError(err).Warn("failed to start directory event log")
	}
}
