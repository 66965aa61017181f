package domain

import "context"

// SignalRepository defines storage operations for journaled signals.
type SignalRepository interface {
	SaveSignal(ctx context.Context, rec *SignalRecord) error
	ListSignals(ctx context.Context, symbol string, limit int) ([]*SignalRecord, error)
}

// LevelSource provides the structural engine output for one instrument.
type LevelSource interface {
	LoadLevels(ctx context.Context, symbol string) (Levels, error)
}
