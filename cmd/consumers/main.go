package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketline/cmd/consumers/jobs"
	"ticketline/internal/app"
	"ticketline/internal/config"
	"ticketline/internal/consumers"
	"ticketline/internal/logger"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Starting consumers service...")

	// Override NATS client ID for consumers
	cfg.NATS.ClientID = "ticketline-consumers"

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	a, err := app.New(startCtx, cfg, app.Options{RequireNATS: true})
	cancelStart()
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}

	consumerService := consumers.NewConsumerService(a)
	if err := consumerService.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}

	ctx, stopJobs := context.WithCancel(context.Background())
	expiration := jobs.NewReservationExpirationJob(a.Services.Sweep, cfg.Sweep.Interval)
	expiration.Start(ctx)
	mail := jobs.NewMailDispatchJob(a.Services.Mail, cfg.Mail.DispatchInterval)
	mail.Start(ctx)
	relay := jobs.NewEventRelayJob(a.Services.Relay, cfg.Relay.Interval)
	relay.Start(ctx)

	slog.Info("Consumers service started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down consumers service...")

	stopJobs()
	expiration.Stop()
	mail.Stop()
	relay.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := consumerService.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
	}

	slog.Info("Consumers service stopped")
}
