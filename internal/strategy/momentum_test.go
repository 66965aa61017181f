package strategy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitos/bsp_resonance/internal/domain"
	"github.com/vitos/bsp_resonance/internal/strategy"
)

func TestMomentum_ThirdPointGating(t *testing.T) {
	tests := []struct {
		name     string
		dir      domain.Direction
		typ      string
		wantOpen bool
	}{
		{"Second buy never opens", domain.DirectionBuy, "2", false},
		{"First buy never opens", domain.DirectionBuy, "1", false},
		{"Third buy a", domain.DirectionBuy, "3a", true},
		{"Third buy b", domain.DirectionBuy, "3b", true},
		{"Compound with third", domain.DirectionBuy, "2,3b", true},
		{"Third sell", domain.DirectionSell, "3a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := newLevel(t, "30m", 10, 20.0, 0)
			setLastClose(level, 21.0)
			addPoint(t, level, 9, tt.dir, tt.typ, 20.5)

			s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
			sig := s.TryOpen(domain.Levels{level}, 0)
			if !tt.wantOpen {
				assert.Nil(t, sig)
				assert.False(t, s.Position().Holding())
				return
			}
			require.NotNil(t, sig)
			assert.Equal(t, tt.typ+strategy.MomentumTag, sig.Type)
			assert.Equal(t, 21.0, sig.Price, "entry at the latest close")
			assert.Equal(t, domain.DirectionBuy, sig.Direction)
			assert.Equal(t, 21.0, s.Position().EntryPrice)
		})
	}
}

func TestMomentum_StalePointDoesNotOpen(t *testing.T) {
	level := newLevel(t, "30m", 10, 20.0, 0)
	addPoint(t, level, 8, domain.DirectionBuy, "3a", 20.0)

	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	assert.Nil(t, s.TryOpen(domain.Levels{level}, 0))
	assert.Nil(t, s.TryOpen(domain.Levels{domain.NewLevelData("30m")}, 0), "no data")
	assert.Nil(t, s.TryOpen(domain.Levels{level}, 3), "unknown level")
}

func TestMomentum_OneOpenPerBar(t *testing.T) {
	level := newLevel(t, "30m", 10, 100.0, 0)
	addPoint(t, level, 9, domain.DirectionBuy, "3b", 100.0)
	levels := domain.Levels{level}

	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	require.NotNil(t, s.TryOpen(levels, 0))
	assert.Nil(t, s.TryOpen(levels, 0))

	setLastClose(level, 90)
	require.NotNil(t, s.TryClose(levels, 0))
	assert.Nil(t, s.TryOpen(levels, 0))
}

func TestMomentum_CloseOnFreshSellPoint(t *testing.T) {
	level := newLevel(t, "30m", 10, 100.0, 0)
	addPoint(t, level, 9, domain.DirectionBuy, "3a", 100.0)
	levels := domain.Levels{level}

	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	require.NotNil(t, s.TryOpen(levels, 0))

	require.NoError(t, level.AppendBar(domain.Bar{Index: 10, Close: 101}))
	assert.Nil(t, s.TryClose(levels, 0), "no sell point yet")

	addPoint(t, level, 10, domain.DirectionSell, "2s", 101)
	exit := s.TryClose(levels, 0)
	require.NotNil(t, exit)
	assert.Equal(t, "sell-2s", exit.Type)
	assert.Equal(t, domain.DirectionSell, exit.Direction)
	assert.Equal(t, 101.0, exit.Price)
	require.NotNil(t, exit.Point)
	assert.False(t, s.Position().Holding())
}

func TestMomentum_StaleSellDoesNotClose(t *testing.T) {
	level := newLevel(t, "30m", 10, 100.0, 0)
	addPoint(t, level, 9, domain.DirectionBuy, "3a", 100.0)
	levels := domain.Levels{level}

	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	require.NotNil(t, s.TryOpen(levels, 0))

	require.NoError(t, level.AppendBar(domain.Bar{Index: 10, Close: 100}))
	addPoint(t, level, 10, domain.DirectionSell, "1", 100)
	require.NoError(t, level.AppendBar(domain.Bar{Index: 11, Close: 99}))

	assert.Nil(t, s.TryClose(levels, 0))
	assert.True(t, s.Position().Holding())
}

func TestMomentum_HardStop(t *testing.T) {
	level := newLevel(t, "30m", 10, 100.0, 0)
	addPoint(t, level, 9, domain.DirectionBuy, "3a", 100.0)
	levels := domain.Levels{level}

	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	require.NotNil(t, s.TryOpen(levels, 0))

	require.NoError(t, level.AppendBar(domain.Bar{Index: 10, Close: 97.0}))
	assert.Nil(t, s.TryClose(levels, 0), "exactly 3% down keeps the position")

	require.NoError(t, level.AppendBar(domain.Bar{Index: 11, Close: 96.99}))
	exit := s.TryClose(levels, 0)
	require.NotNil(t, exit)
	assert.Equal(t, strategy.StopLossTag, exit.Type)
	assert.Nil(t, exit.Point)
	assert.False(t, s.Position().Holding())
}

func TestMomentum_RecencyWindow(t *testing.T) {
	tests := []struct {
		dist int
		want int
	}{
		{0, 1},
		{1, 1},
		{2, 1},
		{3, 0},
		{7, 0},
	}

	for _, tt := range tests {
		level := newLevel(t, "30m", 20, 10.0, 0)
		addPoint(t, level, 19-tt.dist, domain.DirectionBuy, "3b", 9.8)

		s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
		got := s.BspSignal(level)
		assert.Len(t, got, tt.want, "distance %d", tt.dist)
		if tt.want == 1 {
			assert.Equal(t, 9.8, got[0].Price)
			assert.Equal(t, "3b", got[0].Type)
			assert.Equal(t, 19-tt.dist, got[0].Bar.Index)
		}
	}
}

func TestMomentum_ScreeningRejectsNonThirdBuy(t *testing.T) {
	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	assert.Empty(t, s.BspSignal(domain.NewLevelData("30m")))

	level := newLevel(t, "30m", 5, 10.0, 0)
	addPoint(t, level, 4, domain.DirectionBuy, "2", 10)
	assert.Empty(t, s.BspSignal(level))

	level = newLevel(t, "30m", 5, 10.0, 0)
	addPoint(t, level, 4, domain.DirectionSell, "3a", 10)
	assert.Empty(t, s.BspSignal(level))
}

func TestMomentum_ScreeningIsIdempotent(t *testing.T) {
	level := newLevel(t, "30m", 10, 50.0, 0)
	addPoint(t, level, 9, domain.DirectionBuy, "3a", 49.5)
	levels := domain.Levels{level}

	s := strategy.NewMomentum(strategy.DefaultConfig(), nil)
	for i := 0; i < 5; i++ {
		require.Len(t, s.BspSignal(level), 1)
		assert.Equal(t, domain.Position{Status: domain.StatusFlat}, s.Position())
	}

	require.NotNil(t, s.TryOpen(levels, 0))
	before := s.Position()
	for i := 0; i < 5; i++ {
		s.BspSignal(level)
		assert.Equal(t, before, s.Position())
	}
}
