// Package strategy turns structural buy/sell points into entry and exit signals.
package strategy

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
)

// Strategy is the capability every strategy variant implements. The driver
// calls TryOpen, TryClose and BspSignal once per finalized bar per level.
// An instance owns exactly one position and must not be shared across instruments.
type Strategy interface {
	Name() string
	TryOpen(levels domain.Levels, lv int) *domain.Signal
	TryClose(levels domain.Levels, lv int) *domain.Signal
	BspSignal(level *domain.LevelData) []*domain.Signal
	Position() domain.Position
}

type Kind string

const (
	KindResonance Kind = "resonance"
	KindMomentum  Kind = "momentum"
)

// Config selects the strategy variant and its options.
type Config struct {
	Kind         Kind `yaml:"kind"`
	UseResonance bool `yaml:"use_resonance"`
	StrictOpen   bool `yaml:"strict_open"` // reserved
	// StrictResonance only lets finer points of the divergence subtype ("1") resonate.
	StrictResonance   bool     `yaml:"strict_resonance"`
	MaxStopLossRate   *float64 `yaml:"max_stop_loss_rate"`
	MaxTakeProfitRate *float64 `yaml:"max_take_profit_rate"`
}

func DefaultConfig() Config {
	return Config{
		Kind:         KindResonance,
		UseResonance: true,
		StrictOpen:   true,
	}
}

func (c Config) Validate() error {
	if _, err := parseKind(string(c.Kind)); err != nil {
		return err
	}
	if c.MaxStopLossRate != nil && (*c.MaxStopLossRate <= 0 || *c.MaxStopLossRate >= 1) {
		return fmt.Errorf("max_stop_loss_rate must be in (0,1), got %v", *c.MaxStopLossRate)
	}
	if c.MaxTakeProfitRate != nil && *c.MaxTakeProfitRate <= 0 {
		return fmt.Errorf("max_take_profit_rate must be positive, got %v", *c.MaxTakeProfitRate)
	}
	return nil
}

func parseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "resonance", "interval_nesting":
		return KindResonance, nil
	case "momentum", "third_buy", "second_theorem":
		return KindMomentum, nil
	default:
		return "", fmt.Errorf("unknown strategy kind %q", s)
	}
}

// Build returns a fresh strategy instance matching the configured kind.
func Build(cfg Config, logger *zap.Logger) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	kind, _ := parseKind(string(cfg.Kind))
	switch kind {
	case KindMomentum:
		return NewMomentum(cfg, logger), nil
	default:
		return NewResonance(cfg, logger), nil
	}
}

// openMark remembers the bar of the last successful open so a fresh point
// cannot open twice on the same bar.
type openMark struct {
	set   bool
	level int
	bar   int
}

func (m openMark) matches(level, bar int) bool {
	return m.set && m.level == level && m.bar == bar
}

func isThirdPoint(typ string) bool {
	return strings.Contains(typ, "3")
}

func nopIfNil(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
