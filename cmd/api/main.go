package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"servicehub/internal/app"
	"servicehub/internal/config"
	"servicehub/internal/database"
	"servicehub/internal/domain/notification"
	"servicehub/internal/logger"
	"servicehub/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logg := logger.New(cfg.AppEnv)
	defer func() { _ = logg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.AppEnv)
	if err != nil {
		logg.Fatal("Failed to set up tracing", zap.Error(err))
	}

	db, err := database.Connect(cfg.DatabaseURL, logg)
	if err != nil {
		logg.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(ctx, db, logg, app.Models()...); err != nil {
		logg.Fatal("Failed to migrate database", zap.Error(err))
	}

	var delivery notification.Dispatcher = notification.NewLogDispatcher(logg)
	if cfg.RabbitURL != "" {
		publisher, err := notification.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, logg)
		if err != nil {
			logg.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer publisher.Close()
		delivery = publisher
	}
	dispatcher := notification.NewAsync(delivery, cfg.NotifyTimeout, logg)

	a := app.New(app.Deps{
		Config:     cfg,
		DB:         db,
		Logger:     logg,
		Dispatcher: dispatcher,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logg.Info("HTTP server listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("env", cfg.AppEnv),
			zap.Int64("commission_bps", cfg.CommissionRateBPS),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logg.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("HTTP server shutdown failed", zap.Error(err))
	}
	dispatcher.Wait()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logg.Error("Tracing shutdown failed", zap.Error(err))
	}
}
