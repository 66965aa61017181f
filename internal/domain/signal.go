package domain

import (
	"fmt"
	"time"
)

// BarRange is a span of bar indexes within one level.
type BarRange struct {
	Begin int `json:"begin"`
	End   int `json:"end"`
}

// Signal is one actionable event produced by a strategy.
type Signal struct {
	Point     *StructuralPoint `json:"point,omitempty"` // nil for synthetic exits
	Bar       Bar              `json:"bar"`
	Type      string           `json:"type"`
	Direction Direction        `json:"direction"`
	Target    *BarRange        `json:"target,omitempty"` // reserved
	Price     float64          `json:"price"`
	Features  map[string]any   `json:"features,omitempty"`
}

// NewSignal builds a signal, rejecting a direction that disagrees with the
// originating structural point.
func NewSignal(point *StructuralPoint, bar Bar, typ string, dir Direction, price float64) (*Signal, error) {
	if point != nil && point.Direction != dir {
		return nil, fmt.Errorf("signal %s: direction %s, point %s: %w", typ, dir, point.Direction, ErrDirectionMismatch)
	}
	var ref *StructuralPoint
	if point != nil {
		p := *point
		ref = &p
	}
	return &Signal{
		Point:     ref,
		Bar:       bar,
		Type:      typ,
		Direction: dir,
		Price:     price,
		Features:  make(map[string]any),
	}, nil
}

func (s *Signal) IsBuy() bool {
	return s.Direction == DirectionBuy
}

// SignalKind tells how the driver obtained a signal.
type SignalKind string

const (
	KindOpen   SignalKind = "OPEN"
	KindClose  SignalKind = "CLOSE"
	KindScreen SignalKind = "SCREEN"
)

// SignalRecord is a journaled signal.
type SignalRecord struct {
	ID        string     `json:"id"`
	Symbol    string     `json:"symbol"`
	Strategy  string     `json:"strategy"`
	Level     string     `json:"level"`
	Kind      SignalKind `json:"kind"`
	Signal    Signal     `json:"signal"`
	CreatedAt time.Time  `json:"created_at"`
}
