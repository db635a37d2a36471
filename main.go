package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/bidnbuy/backend/auction"
	"github.com/bidnbuy/backend/auth"
	"github.com/bidnbuy/backend/config"
	"github.com/bidnbuy/backend/database"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/bidnbuy/backend/handlers"
	"github.com/bidnbuy/backend/logger"
	"github.com/bidnbuy/backend/middleware"
	"github.com/bidnbuy/backend/services"
	"github.com/bidnbuy/backend/utils"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := "config.toml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	slog.SetDefault(slog.New(logger.NewHandler("BidnBuy")))

	slog.Info("Starting Bid&Buy API",
		slog.String("version", version),
		slog.String("commit", commit))

	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	slog.Info("Connecting to database...")
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("Database connected successfully")

	lotRepo := repositories.NewLotRepository(db.BunDB())
	bidRepo := repositories.NewBidRepository(db.BunDB())
	paymentRepo := repositories.NewPaymentRepository(db.BunDB())
	userRepo := repositories.NewUserRepository(db.BunDB())
	notificationRepo := repositories.NewNotificationRepository(db.BunDB())

	var spacesService *services.SpacesService
	if cfg.Spaces.Key != "" {
		spacesService, err = services.NewSpacesService(
			cfg.Spaces.Key,
			cfg.Spaces.Secret,
			cfg.Spaces.Region,
			cfg.Spaces.Bucket,
			cfg.Spaces.LotRoot,
		)
		if err != nil {
			slog.Error("Failed to initialize spaces", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	notifier := auction.NewNotifier(notificationRepo)
	var storage auction.BlobStore
	if spacesService != nil {
		storage = spacesService
	}
	manager := auction.NewManager(db.BunDB(), lotRepo, bidRepo, paymentRepo, userRepo, notifier, storage)

	verifier, err := auth.NewVerifier(auth.Config{
		Domain:   cfg.Auth0.Domain,
		Audience: cfg.Auth0.Audience,
	})
	if err != nil {
		slog.Error("Failed to initialize auth", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Background sweeps.
	processes := utils.NewBackgroundProcessManager()
	expirySweeper := auction.NewExpirySweeper(manager, cfg.Sweeper.ExpiryInterval())
	retentionSweeper := auction.NewRetentionSweeper(
		manager,
		cfg.Sweeper.RetentionInterval(),
		cfg.Sweeper.ClosedLotRetention(),
		cfg.Sweeper.CancelledBidGrace(),
	)
	processes.StartProcess("expiry-sweeper", "Expires overdue payment deadlines", expirySweeper.Run)
	processes.StartProcess("retention-sweeper", "Purges stale closed lots and old bids", retentionSweeper.Run)

	app := fiber.New(fiber.Config{
		AppName:      "Bid&Buy API",
		ServerHeader: "BidnBuy",
		ErrorHandler: middleware.ErrorHandler,
		BodyLimit:    25 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
	corsOrigins := cfg.Web.CORSOrigins
	if corsOrigins == "" {
		corsOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: corsOrigins,
		AllowMethods: "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.RequestLogger())

	webApp := &handlers.WebApp{
		DB:            db,
		Manager:       manager,
		Lots:          lotRepo,
		Bids:          bidRepo,
		Payments:      paymentRepo,
		Users:         userRepo,
		Notifications: notificationRepo,
		Spaces:        spacesService,
	}
	authenticator := middleware.NewAuthenticator(verifier, userRepo)

	setupRoutes(app, webApp, authenticator)

	address := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	slog.Info("Starting server", slog.String("address", address))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := app.Listen(address); err != nil {
			slog.Error("Failed to start server", slog.String("error", err.Error()))
		}
	}()

	<-sig
	slog.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("Server shutdown error", slog.String("error", err.Error()))
	}
	if err := processes.Shutdown(10 * time.Second); err != nil {
		slog.Error("Background shutdown error", slog.String("error", err.Error()))
	}
	db.Close()

	slog.Info("Shutdown complete")
}
