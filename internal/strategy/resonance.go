package strategy

import (
	"strings"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
)

const (
	ResonanceTag  = "(resonance)"
	StopLossTag   = "stop-loss"
	TakeProfitTag = "take-profit"
)

// Resonance opens when a freshly confirmed point at a coarse level is matched
// by a same-direction point on the next finer level inside the same coarse bar.
// It exits on percentage stop-loss / take-profit.
type Resonance struct {
	cfg    Config
	logger *zap.Logger
	pos    domain.Position
	opened openMark
}

func NewResonance(cfg Config, logger *zap.Logger) *Resonance {
	return &Resonance{
		cfg:    cfg,
		logger: nopIfNil(logger),
		pos:    domain.Position{Status: domain.StatusFlat},
	}
}

func (s *Resonance) Name() string { return "Resonance" }

func (s *Resonance) Position() domain.Position { return s.pos }

func (s *Resonance) TryOpen(levels domain.Levels, lv int) *domain.Signal {
	if s.pos.Holding() || !s.cfg.UseResonance {
		return nil
	}
	// the finest level has nothing below it to resonate with
	if lv < 0 || lv >= len(levels)-1 {
		return nil
	}
	data := levels[lv]
	if !data.HasPen() {
		return nil
	}

	sig, err := s.resonate(data, levels[lv+1])
	if err != nil {
		s.logger.Debug("No resonance", zap.String("level", data.Name), zap.Error(err))
		return nil
	}
	if s.opened.matches(lv, sig.Bar.Index) {
		return nil
	}

	s.pos = domain.Position{Status: domain.StatusHolding, EntryPrice: sig.Price}
	s.opened = openMark{set: true, level: lv, bar: sig.Bar.Index}
	return sig
}

// resonate scans the finer level in chronological order; the first match wins.
func (s *Resonance) resonate(data, sub *domain.LevelData) (*domain.Signal, error) {
	lastBar, ok := data.LastBar()
	if !ok {
		return nil, domain.ErrMissingStructuralData
	}
	coarse, ok := data.LastPoint()
	if !ok {
		return nil, domain.ErrMissingStructuralData
	}
	if coarse.BarIndex != lastBar.Index {
		return nil, domain.ErrStaleSignal
	}

	if sub == nil {
		return nil, domain.ErrMissingStructuralData
	}

	reason := domain.ErrNoResonance
	for _, fine := range sub.Points {
		bar, ok := sub.Bar(fine.BarIndex)
		if !ok {
			continue
		}
		parent, ok := bar.ParentIndex()
		if !ok {
			reason = domain.ErrAlignmentUnavailable
			continue
		}
		if parent != lastBar.Index {
			continue
		}
		if fine.Direction != coarse.Direction {
			reason = domain.ErrDirectionMismatch
			continue
		}
		if s.cfg.StrictResonance && !strings.Contains(fine.Type, "1") {
			continue
		}

		sig, err := domain.NewSignal(&coarse, lastBar, coarse.Type+ResonanceTag, coarse.Direction, fine.Price)
		if err != nil {
			return nil, err
		}
		sig.Features["sub_level"] = sub.Name
		sig.Features["sub_type"] = fine.Type
		sig.Features["sub_bar"] = fine.BarIndex
		sig.Features["coarse_price"] = coarse.Price
		return sig, nil
	}
	return nil, reason
}

// TryClose checks the newest bar of the finest level against the entry price.
// Stop-loss is checked before take-profit.
func (s *Resonance) TryClose(levels domain.Levels, lv int) *domain.Signal {
	if !s.pos.Holding() {
		return nil
	}
	lastBar, ok := levels.Finest().LastBar()
	if !ok {
		return nil
	}
	price := lastBar.Close

	var tag string
	switch {
	case s.cfg.MaxStopLossRate != nil && stopLossHit(price, s.pos.EntryPrice, *s.cfg.MaxStopLossRate):
		tag = StopLossTag
	case s.cfg.MaxTakeProfitRate != nil && takeProfitHit(price, s.pos.EntryPrice, *s.cfg.MaxTakeProfitRate):
		tag = TakeProfitTag
	default:
		return nil
	}

	sig, _ := domain.NewSignal(nil, lastBar, tag, domain.DirectionSell, price)
	sig.Features["entry_price"] = s.pos.EntryPrice
	s.pos = domain.Position{Status: domain.StatusFlat}
	return sig
}

// BspSignal has no screening rule for resonance; it always returns nothing.
func (s *Resonance) BspSignal(level *domain.LevelData) []*domain.Signal {
	return nil
}
