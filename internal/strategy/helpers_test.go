package strategy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vitos/bsp_resonance/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// newLevel builds a level of n bars closing at price. When perParent > 0 each
// bar is aligned to the coarser bar i/perParent.
func newLevel(t *testing.T, name string, n int, price float64, perParent int) *domain.LevelData {
	t.Helper()
	l := domain.NewLevelData(name)
	for i := 0; i < n; i++ {
		b := domain.Bar{Index: i, Time: t0.Add(time.Duration(i) * time.Minute), Open: price, High: price, Low: price, Close: price}
		if perParent > 0 {
			p := i / perParent
			b.Parent = &p
		}
		require.NoError(t, l.AppendBar(b))
	}
	return l
}

func addPoint(t *testing.T, l *domain.LevelData, bar int, dir domain.Direction, typ string, price float64) {
	t.Helper()
	require.NoError(t, l.AppendPoint(domain.StructuralPoint{BarIndex: bar, Direction: dir, Type: typ, Price: price}))
}

func setLastClose(l *domain.LevelData, price float64) {
	l.Bars[len(l.Bars)-1].Close = price
}

func rate(v float64) *float64 { return &v }
