package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/KevinKickass/KilnTelemetry/internal/config"
	"github.com/KevinKickass/KilnTelemetry/internal/plc"
	"github.com/KevinKickass/KilnTelemetry/internal/system"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the config file")
	capture := flag.String("capture", "", "read every block once, write db<N>.bin dumps to this directory and exit")
	flag.Parse()

	// Config laden
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logger initialisieren
	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Config loaded successfully", zap.String("path", *configPath))

	lifecycle, err := system.NewLifecycleManager(cfg, nil, logger)
	if err != nil {
		logger.Fatal("Failed to initialize system", zap.Error(err))
	}

	if *capture != "" {
		if err := captureBlocks(lifecycle, *capture, logger); err != nil {
			logger.Fatal("Capture failed", zap.Error(err))
		}
		return
	}

	if err := lifecycle.Start(); err != nil {
		logger.Fatal("Failed to start system", zap.Error(err))
	}

	logger.Info("KilnTelemetry started successfully")

	// Graceful Shutdown auf Signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range sigChan {
		if sig == syscall.SIGHUP {
			if err := lifecycle.Reload(); err != nil {
				logger.Error("Reload failed", zap.Error(err))
			}
			continue
		}
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		break
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := lifecycle.Shutdown(ctx); err != nil {
		logger.Error("Shutdown failed", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("KilnTelemetry stopped successfully")
}

// captureBlocks reads each configured block once from the PLC and stores it
// as a dump file for offline decoding.
func captureBlocks(lifecycle *system.LifecycleManager, dir string, logger *zap.Logger) error {
	cfg := lifecycle.Config()
	client := plc.NewClient(cfg.PLC.Address, cfg.PLC.Rack, cfg.PLC.Slot, cfg.PLC.Timeout, cfg.PLC.IdleTimeout, logger)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PLC.Timeout*time.Duration(len(lifecycle.DeviceManager().Blocks())+1))
	defer cancel()

	for _, block := range lifecycle.DeviceManager().Blocks() {
		buf, err := client.ReadBlock(ctx, block.DBNumber, block.TotalSize)
		if err != nil {
			return err
		}
		if err := plc.WriteDump(dir, block.DBNumber, buf); err != nil {
			return err
		}
		logger.Info("Block captured",
			zap.Int("db_number", block.DBNumber),
			zap.Int("size", len(buf)),
			zap.String("dir", dir))
	}

	return nil
}
