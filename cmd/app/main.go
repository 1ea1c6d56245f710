package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flatup/internal/config"
	"flatup/internal/db"
	"flatup/internal/email"
	"flatup/internal/logger"
	"flatup/internal/payment"
	"flatup/internal/server"
	"flatup/internal/subscription"
	"flatup/internal/user"
)

// @title FlatUp API
// @version 1.0
// @description Subscription and payment API for the FlatUp rental marketplace.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	logger.Init()
	logger.Info("Starting FlatUp application")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb, err := db.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Fatal("Failed to connect to redis", "error", err)
	}
	defer rdb.Close()

	emailService := email.New(rdb, email.Options{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
		AppURL:   cfg.AppURL,
	})
	logger.Info("Email service initialized")

	userRepo := user.NewRepository(database)
	userService := user.NewService(userRepo, emailService, cfg.JWTSecret)

	razorpay := payment.NewRazorpayClient(cfg.Payment.KeyID, cfg.Payment.KeySecret, cfg.Payment.BaseURL, cfg.Payment.Timeout)
	orders := payment.NewOrderService(razorpay, razorpay.KeyID())

	subRepo := subscription.NewRepository(database)
	ledger := subscription.NewLedger(
		subRepo,
		userRepo,
		payment.NewVerifier(cfg.Payment.KeySecret),
		subscription.NewNotifier(emailService),
	)
	reconciler := subscription.NewReconciler(subRepo, rdb, cfg.ReconcileInterval)

	srv := server.New(cfg, database, rdb, server.Handlers{
		User:         user.NewHandler(userService),
		Payment:      payment.NewHandler(orders),
		Subscription: subscription.NewHandler(ledger, reconciler),
	})

	go emailService.Start(ctx)
	go reconciler.Start(ctx)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
