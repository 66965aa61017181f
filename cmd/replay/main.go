package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/config"
	"github.com/vitos/bsp_resonance/internal/infrastructure/feed"
	"github.com/vitos/bsp_resonance/internal/infrastructure/logger"
	"github.com/vitos/bsp_resonance/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file")
	symbol := flag.String("symbol", "", "symbol to replay")
	logFile := flag.String("log", "replay.log", "log file")
	flag.Parse()

	if *symbol == "" {
		fmt.Println("Usage: replay -symbol <symbol> [-config path]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewFileLogger(*logFile, cfg.Logging.Level, "json")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()
	source := feed.NewSnapshotSource(cfg.Scanner.SnapshotDir, cfg.Levels)
	levels, err := source.LoadLevels(ctx, *symbol)
	if err != nil {
		log.Fatal("Failed to load snapshot", zap.String("symbol", *symbol), zap.Error(err))
	}

	registry, err := usecase.NewRegistry(cfg.Strategy, log)
	if err != nil {
		log.Fatal("Invalid strategy config", zap.Error(err))
	}
	svc := usecase.NewSignalService(registry, nil, log)

	results, err := usecase.Replay(ctx, svc, *symbol, levels)
	if err != nil {
		log.Error("Replay finished with errors", zap.Error(err))
	}

	for _, r := range results {
		if r.Open != nil {
			fmt.Printf("%s %-5s #%-5d OPEN  %-20s %10.3f\n", r.Open.Bar.Time.Format("2006-01-02 15:04"), r.Level, r.BarIndex, r.Open.Type, r.Open.Price)
		}
		if r.Close != nil {
			fmt.Printf("%s %-5s #%-5d CLOSE %-20s %10.3f\n", r.Close.Bar.Time.Format("2006-01-02 15:04"), r.Level, r.BarIndex, r.Close.Type, r.Close.Price)
		}
	}
	pos, _ := registry.GetPosition(*symbol)
	fmt.Printf("final position: %s\n", pos.Status)
}
