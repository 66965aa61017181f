package usecase

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/strategy"
)

type strategyEntry struct {
	mu    sync.Mutex
	strat strategy.Strategy
}

// Registry owns one strategy instance per instrument. A strategy models a
// single position, so instances are never shared between symbols.
type Registry struct {
	cfg     strategy.Config
	logger  *zap.Logger
	entries map[string]*strategyEntry
	mu      sync.RWMutex
}

func NewRegistry(cfg strategy.Config, logger *zap.Logger) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("strategy config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		cfg:     cfg,
		logger:  logger,
		entries: make(map[string]*strategyEntry),
	}, nil
}

func (r *Registry) entry(symbol string) (*strategyEntry, error) {
	r.mu.RLock()
	e, ok := r.entries[symbol]
	r.mu.RUnlock()
	if ok {
		return e, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[symbol]; ok {
		return e, nil
	}
	strat, err := strategy.Build(r.cfg, r.logger.With(zap.String("symbol", symbol)))
	if err != nil {
		return nil, err
	}
	e = &strategyEntry{strat: strat}
	r.entries[symbol] = e
	r.logger.Info("Strategy created", zap.String("symbol", symbol), zap.String("strategy", strat.Name()))
	return e, nil
}

// With runs fn against the symbol's strategy. Calls for the same symbol are
// serialized.
func (r *Registry) With(symbol string, fn func(strategy.Strategy) error) error {
	e, err := r.entry(symbol)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.strat)
}

// GetPosition returns the tracked position of a symbol, if a strategy exists.
func (r *Registry) GetPosition(symbol string) (domain.Position, bool) {
	r.mu.RLock()
	e, ok := r.entries[symbol]
	r.mu.RUnlock()
	if !ok {
		return domain.Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.strat.Position(), true
}

type SymbolPosition struct {
	Symbol   string          `json:"symbol"`
	Strategy string          `json:"strategy"`
	Position domain.Position `json:"position"`
}

// Positions lists all tracked symbols sorted by name.
func (r *Registry) Positions() []SymbolPosition {
	r.mu.RLock()
	symbols := make([]string, 0, len(r.entries))
	for s := range r.entries {
		symbols = append(symbols, s)
	}
	r.mu.RUnlock()
	sort.Strings(symbols)

	out := make([]SymbolPosition, 0, len(symbols))
	for _, sym := range symbols {
		r.mu.RLock()
		e := r.entries[sym]
		r.mu.RUnlock()
		e.mu.Lock()
		out = append(out, SymbolPosition{Symbol: sym, Strategy: e.strat.Name(), Position: e.strat.Position()})
		e.mu.Unlock()
	}
	return out
}

// Reset drops the symbol's strategy; the next call starts FLAT.
func (r *Registry) Reset(symbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, symbol)
}
