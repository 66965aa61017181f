package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/metrics"
	"github.com/vitos/bsp_resonance/internal/strategy"
)

type ScreenHit struct {
	Symbol string    `json:"symbol"`
	Type   string    `json:"type"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// Screener runs the stateless screening query over a pool of instruments.
type Screener struct {
	source domain.LevelSource
	cfg    strategy.Config
	repo   domain.SignalRepository
	logger *zap.Logger
}

func NewScreener(source domain.LevelSource, cfg strategy.Config, repo domain.SignalRepository, logger *zap.Logger) *Screener {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Screener{
		source: source,
		cfg:    cfg,
		repo:   repo,
		logger: logger,
	}
}

// Scan screens every symbol of the pool at the named level. A failing symbol
// is logged and skipped; only configuration errors and cancellation abort the run.
func (s *Screener) Scan(ctx context.Context, pool []string, level string) ([]ScreenHit, error) {
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}

	var hits []ScreenHit
	for _, symbol := range pool {
		if err := ctx.Err(); err != nil {
			return hits, err
		}

		levels, err := s.source.LoadLevels(ctx, symbol)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return hits, err
			}
			s.logger.Warn("Skipping symbol", zap.String("symbol", symbol), zap.Error(err))
			metrics.ScreenSkippedTotal.Inc()
			continue
		}
		data := levels.Get(levels.Index(level))
		if data == nil {
			s.logger.Warn("Level not available", zap.String("symbol", symbol), zap.String("level", level))
			metrics.ScreenSkippedTotal.Inc()
			continue
		}

		// fresh instance per symbol: screening never touches a live position
		strat, err := strategy.Build(s.cfg, s.logger)
		if err != nil {
			return hits, err
		}
		sigs := strat.BspSignal(data)
		if len(sigs) == 0 {
			s.logger.Debug("No match", zap.String("symbol", symbol))
			continue
		}

		for _, sig := range sigs {
			s.logger.Info("Screening match",
				zap.String("symbol", symbol),
				zap.String("type", sig.Type),
				zap.Float64("price", sig.Price))
			metrics.SignalsTotal.WithLabelValues(strat.Name(), string(domain.KindScreen)).Inc()
			hits = append(hits, ScreenHit{Symbol: symbol, Type: sig.Type, Price: sig.Price, Time: sig.Bar.Time})
			s.save(ctx, symbol, strat.Name(), data.Name, sig)
		}
	}
	return hits, nil
}

func (s *Screener) save(ctx context.Context, symbol, strat, level string, sig *domain.Signal) {
	if s.repo == nil {
		return
	}
	rec := &domain.SignalRecord{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Strategy:  strat,
		Level:     level,
		Kind:      domain.KindScreen,
		Signal:    *sig,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SaveSignal(ctx, rec); err != nil {
		s.logger.Error("Failed to save screening match", zap.String("symbol", symbol), zap.Error(err))
	}
}
