package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/joho/godotenv"

	"github.com/ahmetcoskunkizilkaya/learnauth/internal/config"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/database"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/dto"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/logging"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/repository/users"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/routes"
	"github.com/ahmetcoskunkizilkaya/learnauth/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Structured logging (JSON to stdout)
	logging.Setup(cfg.LogLevel)

	// Store
	var (
		repo     users.Repository
		shutdown []func()
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, db, err := database.ConnectMongo(context.Background(), cfg)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		mongoRepo := users.NewMongoRepository(db)
		if err := mongoRepo.EnsureIndexes(context.Background()); err != nil {
			slog.Error("mongo index setup failed", "error", err)
			os.Exit(1)
		}
		repo = mongoRepo
		shutdown = append(shutdown, func() {
			if err := database.DisconnectMongo(client); err != nil {
				slog.Error("database close error", "error", err)
			}
		})
	default:
		db, err := database.Connect(cfg)
		if err != nil {
			slog.Error("database connection failed", "error", err)
			os.Exit(1)
		}
		if err := database.Migrate(db); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}

		// PostgreSQL log handler (ERROR+ async batch)
		pgLogHandler := logging.NewPGHandler(db)
		logging.Setup(cfg.LogLevel, pgLogHandler)

		cleanupDone := make(chan struct{})
		logging.StartCleanup(db, cfg.LogRetentionDays, cleanupDone)

		repo = users.NewPostgresRepository(db)
		shutdown = append(shutdown, func() {
			close(cleanupDone)
			pgLogHandler.Stop()
			if err := database.Close(db); err != nil {
				slog.Error("database close error", "error", err)
			}
		})
	}

	// Services
	tokens, err := services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		slog.Error("token issuer setup failed", "error", err)
		os.Exit(1)
	}
	authService := services.NewAuthService(repo, services.NewPasswordHasher(cfg.BcryptCost), tokens)
	userService := services.NewUserService(repo)

	var google services.IdentityProvider
	if cfg.GoogleEnabled() {
		google, err = services.NewGoogleProvider(services.GoogleProviderConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.GoogleCallbackURL,
			StateSecret:  cfg.JWTSecret,
			HTTPTimeout:  cfg.OAuthHTTPTimeout,
		})
		if err != nil {
			slog.Error("google provider setup failed", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("google oauth disabled, GOOGLE_* settings incomplete")
	}

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, google, cfg.ClientURL)
	userHandler := handlers.NewUserHandler(userService)
	healthHandler := handlers.NewHealthHandler(repo)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(middleware.SecurityHeaders())

	// Routes
	routes.Setup(app, middleware.Protect(tokens, repo), authHandler, userHandler, healthHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port, "store", cfg.StoreDriver, "google", cfg.GoogleEnabled())
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("server shutdown error", "error", err)
	}
	for _, fn := range shutdown {
		fn()
	}
	sentry.Flush(2 * time.Second)

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Server error"
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Success: false, Message: message})
}
