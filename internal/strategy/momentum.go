package strategy

import (
	"errors"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
)

const (
	MomentumTag = "(third-buy)"

	// momentumStopRate is a fixed hard stop, unlike the configurable resonance exits.
	momentumStopRate = 0.03
	// recencyWindow is the screening window in bars (distance must be below it).
	recencyWindow = 3
)

var errNotThirdBuy = errors.New("last point is not a third buy")

// Momentum only trades third buy points ("3a", "3b" and compound forms) and
// leaves on any fresh sell point or a 3% drop below the entry.
type Momentum struct {
	cfg    Config
	logger *zap.Logger
	pos    domain.Position
	opened openMark
}

func NewMomentum(cfg Config, logger *zap.Logger) *Momentum {
	return &Momentum{
		cfg:    cfg,
		logger: nopIfNil(logger),
		pos:    domain.Position{Status: domain.StatusFlat},
	}
}

func (s *Momentum) Name() string { return "Momentum" }

func (s *Momentum) Position() domain.Position { return s.pos }

func (s *Momentum) TryOpen(levels domain.Levels, lv int) *domain.Signal {
	if s.pos.Holding() {
		return nil
	}
	data := levels.Get(lv)
	if data == nil {
		return nil
	}

	sig, err := s.thirdBuy(data)
	if err != nil {
		s.logger.Debug("No third buy", zap.String("level", data.Name), zap.Error(err))
		return nil
	}
	if s.opened.matches(lv, sig.Bar.Index) {
		return nil
	}

	s.pos = domain.Position{Status: domain.StatusHolding, EntryPrice: sig.Price}
	s.opened = openMark{set: true, level: lv, bar: sig.Bar.Index}
	return sig
}

func (s *Momentum) thirdBuy(data *domain.LevelData) (*domain.Signal, error) {
	pt, ok := data.LastPoint()
	if !ok {
		return nil, domain.ErrMissingStructuralData
	}
	if !pt.IsBuy() {
		return nil, errNotThirdBuy
	}
	lastBar, _ := data.LastBar()
	if pt.BarIndex != lastBar.Index {
		return nil, domain.ErrStaleSignal
	}
	if !isThirdPoint(pt.Type) {
		return nil, errNotThirdBuy
	}
	return domain.NewSignal(&pt, lastBar, pt.Type+MomentumTag, domain.DirectionBuy, lastBar.Close)
}

func (s *Momentum) TryClose(levels domain.Levels, lv int) *domain.Signal {
	if !s.pos.Holding() {
		return nil
	}
	data := levels.Get(lv)
	pt, ok := data.LastPoint()
	if !ok {
		return nil
	}
	lastBar, _ := data.LastBar()

	// any fresh sell point closes, whatever its subtype
	if !pt.IsBuy() && pt.BarIndex == lastBar.Index {
		sig, err := domain.NewSignal(&pt, lastBar, "sell-"+pt.Type, domain.DirectionSell, lastBar.Close)
		if err != nil {
			return nil
		}
		sig.Features["entry_price"] = s.pos.EntryPrice
		s.pos = domain.Position{Status: domain.StatusFlat}
		return sig
	}

	if belowHardStop(lastBar.Close, s.pos.EntryPrice, momentumStopRate) {
		sig, _ := domain.NewSignal(nil, lastBar, StopLossTag, domain.DirectionSell, lastBar.Close)
		sig.Features["entry_price"] = s.pos.EntryPrice
		s.pos = domain.Position{Status: domain.StatusFlat}
		return sig
	}
	return nil
}

// BspSignal reports the last point when it is a third buy confirmed within
// the recency window. It never touches the position.
func (s *Momentum) BspSignal(level *domain.LevelData) []*domain.Signal {
	pt, ok := level.LastPoint()
	if !ok || !pt.IsBuy() || !isThirdPoint(pt.Type) {
		return nil
	}
	lastBar, _ := level.LastBar()
	dist := lastBar.Index - pt.BarIndex
	if dist >= recencyWindow {
		return nil
	}

	bar, _ := level.Bar(pt.BarIndex)
	sig, err := domain.NewSignal(&pt, bar, pt.Type, domain.DirectionBuy, pt.Price)
	if err != nil {
		return nil
	}
	sig.Features["distance"] = dist
	return []*domain.Signal{sig}
}
