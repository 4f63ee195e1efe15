package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ticketline/internal/api"
	"ticketline/internal/app"
	"ticketline/internal/config"
	"ticketline/internal/logger"
)

func main() {
	// Загружаем конфигурацию
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 60*time.Second)
	a, err := app.New(startCtx, cfg, app.Options{Migrate: true})
	cancelStart()
	if err != nil {
		logger.Fatal("Failed to initialize application", "error", err)
	}

	server := api.NewServer(a)

	// Запускаем сервер в отдельной горутине
	go func() {
		if err := server.Run(); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Ждем сигнал для graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
