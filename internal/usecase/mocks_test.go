package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitos/bsp_resonance/internal/domain"
)

// MockSignalRepo
type MockSignalRepo struct {
	mu      sync.Mutex
	Records []*domain.SignalRecord
	SaveErr error
}

func (m *MockSignalRepo) SaveSignal(ctx context.Context, rec *domain.SignalRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, rec)
	return nil
}

func (m *MockSignalRepo) ListSignals(ctx context.Context, symbol string, limit int) ([]*domain.SignalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Records, nil
}

// MockLevelSource
type MockLevelSource struct {
	Data  map[string]domain.Levels
	Errs  map[string]error
	Calls []string
}

func (m *MockLevelSource) LoadLevels(ctx context.Context, symbol string) (domain.Levels, error) {
	m.Calls = append(m.Calls, symbol)
	if err, ok := m.Errs[symbol]; ok {
		return nil, err
	}
	levels, ok := m.Data[symbol]
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, domain.ErrSourceUnavailable)
	}
	return levels, nil
}

var errBoom = errors.New("boom")

var base = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

// thirdBuyLevel builds a single 30m level whose last point is a buy of typ at
// dist bars before the newest bar.
func thirdBuyLevel(t *testing.T, n, dist int, typ string) *domain.LevelData {
	t.Helper()
	l := domain.NewLevelData("30m")
	l.Pens = 3
	for i := 0; i < n; i++ {
		require.NoError(t, l.AppendBar(domain.Bar{Index: i, Time: base.Add(time.Duration(i) * 30 * time.Minute), Close: 10}))
	}
	require.NoError(t, l.AppendPoint(domain.StructuralPoint{BarIndex: n - 1 - dist, Direction: domain.DirectionBuy, Type: typ, Price: 9.9}))
	return l
}

// nestedLevels builds a 30m level with n coarse bars and a 5m level with six
// bars per coarse bar. Bar times are close times.
func nestedLevels(t *testing.T, n int) domain.Levels {
	t.Helper()
	coarse := domain.NewLevelData("30m")
	coarse.Pens = 1
	fine := domain.NewLevelData("5m")
	fine.Pens = 1
	for i := 0; i < n; i++ {
		require.NoError(t, coarse.AppendBar(domain.Bar{Index: i, Time: base.Add(time.Duration(i+1) * 30 * time.Minute), Close: 100}))
		for j := 0; j < 6; j++ {
			idx := i*6 + j
			parent := i
			require.NoError(t, fine.AppendBar(domain.Bar{
				Index:  idx,
				Time:   base.Add(time.Duration(idx+1) * 5 * time.Minute),
				Close:  100,
				Parent: &parent,
			}))
		}
	}
	return domain.Levels{coarse, fine}
}
