package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/metrics"
	"github.com/vitos/bsp_resonance/internal/strategy"
)

// BarResult collects what the strategy produced for one finalized bar.
type BarResult struct {
	Symbol   string
	Level    string
	BarIndex int
	Open     *domain.Signal
	Close    *domain.Signal
	Screen   []*domain.Signal
}

func (r *BarResult) Empty() bool {
	return r.Open == nil && r.Close == nil && len(r.Screen) == 0
}

// SignalService drives the per-instrument strategies bar by bar and journals
// the open/close signals they emit.
type SignalService struct {
	registry *Registry
	repo     domain.SignalRepository
	logger   *zap.Logger
	timeNow  func() time.Time // For testing
}

func NewSignalService(registry *Registry, repo domain.SignalRepository, logger *zap.Logger) *SignalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SignalService{
		registry: registry,
		repo:     repo,
		logger:   logger,
		timeNow:  time.Now,
	}
}

func (s *SignalService) Registry() *Registry {
	return s.registry
}

// ProcessBar runs open-check, close-check and screening for the newest bar at
// level lv. Journal failures are returned after the strategy state has moved.
func (s *SignalService) ProcessBar(ctx context.Context, symbol string, levels domain.Levels, lv int) (*BarResult, error) {
	data := levels.Get(lv)
	if data == nil {
		return nil, fmt.Errorf("level %d out of range (%d levels)", lv, len(levels))
	}
	lastBar, _ := data.LastBar()
	res := &BarResult{Symbol: symbol, Level: data.Name, BarIndex: lastBar.Index}

	var name string
	err := s.registry.With(symbol, func(strat strategy.Strategy) error {
		name = strat.Name()
		res.Open = strat.TryOpen(levels, lv)
		res.Close = strat.TryClose(levels, lv)
		res.Screen = strat.BspSignal(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.BarsTotal.WithLabelValues(data.Name).Inc()

	var errs []error
	if res.Open != nil {
		s.logger.Info("Position opened",
			zap.String("symbol", symbol),
			zap.String("level", data.Name),
			zap.String("type", res.Open.Type),
			zap.Float64("price", res.Open.Price))
		errs = append(errs, s.record(ctx, symbol, name, data.Name, domain.KindOpen, res.Open))
	}
	if res.Close != nil {
		s.logger.Info("Position closed",
			zap.String("symbol", symbol),
			zap.String("level", data.Name),
			zap.String("type", res.Close.Type),
			zap.Float64("price", res.Close.Price))
		errs = append(errs, s.record(ctx, symbol, name, data.Name, domain.KindClose, res.Close))
	}
	for _, sig := range res.Screen {
		metrics.SignalsTotal.WithLabelValues(name, string(domain.KindScreen)).Inc()
		s.logger.Debug("Screening match", zap.String("symbol", symbol), zap.String("type", sig.Type))
	}
	return res, errors.Join(errs...)
}

func (s *SignalService) record(ctx context.Context, symbol, strat, level string, kind domain.SignalKind, sig *domain.Signal) error {
	metrics.SignalsTotal.WithLabelValues(strat, string(kind)).Inc()
	if s.repo == nil {
		return nil
	}
	rec := &domain.SignalRecord{
		ID:        uuid.NewString(),
		Symbol:    symbol,
		Strategy:  strat,
		Level:     level,
		Kind:      kind,
		Signal:    *sig,
		CreatedAt: s.timeNow(),
	}
	if err := s.repo.SaveSignal(ctx, rec); err != nil {
		s.logger.Error("Failed to save signal", zap.String("symbol", symbol), zap.Error(err))
		return fmt.Errorf("save %s signal: %w", kind, err)
	}
	return nil
}
