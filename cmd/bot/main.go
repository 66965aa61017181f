package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/config"
	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/infrastructure/feed"
	"github.com/vitos/bsp_resonance/internal/infrastructure/logger"
	"github.com/vitos/bsp_resonance/internal/infrastructure/storage"
	"github.com/vitos/bsp_resonance/internal/usecase"
	"github.com/vitos/bsp_resonance/internal/web"
)

func main() {
	path := "config/config.yaml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1. Load Config
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Init Logger
	var log *zap.Logger
	if cfg.Logging.File != "" {
		log, err = logger.NewFileLogger(cfg.Logging.File, cfg.Logging.Level, cfg.Logging.Encoding)
	} else {
		log, err = logger.NewLogger(cfg.Logging.Level, cfg.Logging.Encoding)
	}
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// 3. Init Storage
	store, err := storage.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		log.Fatal("Failed to init sqlite", zap.Error(err))
	}
	defer store.Close()

	// 4. Init Strategies
	registry, err := usecase.NewRegistry(cfg.Strategy, log)
	if err != nil {
		log.Fatal("Invalid strategy config", zap.Error(err))
	}
	svc := usecase.NewSignalService(registry, store, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Engine Feed
	client := feed.NewEngineClient(cfg.Engine.WSEndpoint, cfg.Levels, log)
	client.OnBar(func(symbol string, levels domain.Levels, lv int) {
		if _, err := svc.ProcessBar(ctx, symbol, levels, lv); err != nil {
			log.Error("Error processing bar", zap.String("symbol", symbol), zap.Error(err))
		}
	})
	go runFeed(ctx, client, cfg, log)

	// 6. Init Web Server
	server := web.NewServer(cfg.Server.Port, store, registry, client, log)
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// 7. Wait for Shutdown
	<-ctx.Done()

	log.Info("Shutting down...")
	client.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	server.Shutdown(shutdownCtx)

	if cfg.Scanner.SnapshotDir != "" {
		snapshots := feed.NewSnapshotSource(cfg.Scanner.SnapshotDir, cfg.Levels)
		for _, symbol := range client.Symbols() {
			levels, _ := client.Snapshot(symbol)
			if err := snapshots.Save(symbol, levels); err != nil {
				log.Error("Failed to save snapshot", zap.String("symbol", symbol), zap.Error(err))
			}
		}
	}
}

// runFeed keeps the engine connection alive until ctx ends.
func runFeed(ctx context.Context, client *feed.EngineClient, cfg *config.Config, log *zap.Logger) {
	interval := cfg.ReconnectInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	for {
		if err := client.Connect(ctx, cfg.Engine.Symbols); err != nil {
			log.Error("Failed to connect to structural engine", zap.Error(err))
		} else {
			select {
			case <-client.Done():
				log.Warn("Structural engine disconnected")
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return
		}
	}
}
