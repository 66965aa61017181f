package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/config"
	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/infrastructure/feed"
	"github.com/vitos/bsp_resonance/internal/infrastructure/logger"
	"github.com/vitos/bsp_resonance/internal/infrastructure/storage"
	"github.com/vitos/bsp_resonance/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file")
	level := flag.String("level", "", "level to screen (defaults to scanner.level)")
	pool := flag.String("pool", "", "comma separated symbols (defaults to scanner.pool)")
	save := flag.Bool("save", false, "journal matches to the signal store")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Logging.Level, "console")
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	symbols := cfg.Scanner.Pool
	if *pool != "" {
		symbols = strings.Split(*pool, ",")
	}
	lvl := cfg.Scanner.Level
	if *level != "" {
		lvl = *level
	}
	if config.LevelRank(lvl) < 0 {
		log.Fatal("Unsupported level", zap.String("level", lvl))
	}

	var repo domain.SignalRepository
	if *save {
		store, err := storage.NewSQLiteStore(cfg.Storage.Path)
		if err != nil {
			log.Fatal("Failed to init sqlite", zap.Error(err))
		}
		defer store.Close()
		repo = store
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source := feed.NewSnapshotSource(cfg.Scanner.SnapshotDir, nil)
	screener := usecase.NewScreener(source, cfg.Strategy, repo, log)
	hits, err := screener.Scan(ctx, symbols, lvl)
	if err != nil {
		log.Fatal("Scan failed", zap.Error(err))
	}

	fmt.Printf("%d of %d symbols matched at %s\n", len(hits), len(symbols), lvl)
	for _, h := range hits {
		fmt.Printf("%-12s %-8s %10.3f  %s\n", h.Symbol, h.Type, h.Price, h.Time.Format("2006-01-02 15:04"))
	}
}
