package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"protectsync/internal/config"
	"protectsync/internal/coordinator"
	"protectsync/internal/protect"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	logger.Info("Starting Protect sync",
		zap.String("host", cfg.Host),
		zap.Bool("verify_tls", cfg.VerifyTLS),
		zap.Duration("poll_interval", cfg.PollInterval))

	client := protect.NewClient(protect.ClientConfig{
		Host:      cfg.Host,
		APIKey:    cfg.APIKey,
		VerifyTLS: cfg.VerifyTLS,
	}, logger)

	coord := coordinator.New(client, coordinator.Config{
		PollInterval: cfg.PollInterval,
		Logger:       logger,
	})

	unsubscribe := coord.Subscribe(func(snap coordinator.Snapshot) {
		logSnapshot(snap, logger)
	})
	defer unsubscribe()

	if err := coord.Start(context.Background()); err != nil {
		logger.Fatal("Failed to start coordinator", zap.Error(err))
	}

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Synchronizing device state. Press Ctrl+C to exit.")
	<-sigChan

	logger.Info("Shutting down gracefully...")
	if err := coord.Shutdown(); err != nil {
		logger.Error("Shutdown reported an error", zap.Error(err))
	}
}

func logSnapshot(snap coordinator.Snapshot, logger *zap.Logger) {
	if snap.Stale {
		logger.Warn("Device state is stale, showing last known good data",
			zap.Time("updated_at", snap.UpdatedAt))
		return
	}

	connected := 0
	for _, cam := range snap.Cameras {
		if cam.Connected {
			connected++
		}
	}

	fields := []zap.Field{
		zap.Int("cameras", len(snap.Cameras)),
		zap.Int("cameras_connected", connected),
		zap.Int("sensors", len(snap.Sensors)),
		zap.Int("lights", len(snap.Lights)),
		zap.Int("chimes", len(snap.Chimes)),
		zap.Int("viewers", len(snap.Viewers)),
		zap.Int("liveviews", len(snap.Liveviews)),
	}
	if snap.NVR != nil {
		fields = append(fields,
			zap.String("nvr", snap.NVR.Name),
			zap.String("version", snap.NVR.Version))
	}
	logger.Info("Device state updated", fields...)
}
