package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pamojafund/payment-ledger/internal/config"
	"github.com/pamojafund/payment-ledger/internal/data/mongo"
	"github.com/pamojafund/payment-ledger/internal/data/postgres"
	"github.com/pamojafund/payment-ledger/internal/eventbus"
	"github.com/pamojafund/payment-ledger/internal/gateway/mpesa"
	"github.com/pamojafund/payment-ledger/internal/logger"
	"github.com/pamojafund/payment-ledger/internal/notification"
	"github.com/pamojafund/payment-ledger/internal/platform/messaging/producers"
	"github.com/pamojafund/payment-ledger/internal/platform/persistence"
	"github.com/pamojafund/payment-ledger/internal/server"
	"github.com/pamojafund/payment-ledger/internal/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("server")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Payment Ledger service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for the activity trail
	activityProducer, err := producers.NewActivityEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize activity event producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	contributionRepo := postgres.NewContributionRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	projectRepo := postgres.NewProjectRepository(log, postgresDB)
	callbackArchive := mongo.NewCallbackArchive(log, mongoDB.Database())

	// Initialize gateway client; fails fast on a sandbox credential in production
	gatewayClient, err := mpesa.NewClient(log, cfg.Gateway, cfg.Application.Env)
	if err != nil {
		log.Error("Failed to initialize gateway client", "error", err)
		os.Exit(1)
	}

	// Initialize notification dispatcher
	notifier, err := notification.NewAsyncDispatcher(log, &cfg.Notification, notification.NewLogSender(log))
	if err != nil {
		log.Error("Failed to initialize notification dispatcher", "error", err)
		os.Exit(1)
	}

	// Initialize event bus and orchestrator
	bus := eventbus.New(log)
	contributionService := service.NewContributionService(
		log,
		postgresDB,
		contributionRepo,
		transactionRepo,
		auditRepo,
		projectRepo,
		gatewayClient,
		notifier,
		activityProducer,
	)
	contributionService.RegisterEventHandlers(bus)

	// Initialize REST server
	srv := server.NewServer(log, cfg, contributionService, bus, callbackArchive)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := srv.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no new callbacks arrive
	if err = srv.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Drain the notification pool
	notifier.Shutdown()

	if err = activityProducer.Close(); err != nil {
		log.Error("Error closing activity event producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
