package arbitrage

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbscan/internal/model"
)

var noon = time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) int64 {
	return noon.Add(d).Unix()
}

func TestMinuteAggregator_PicksBetterDirection(t *testing.T) {
	dex := []model.DexTrade{
		dexTrade(at(5*time.Second), 2490, 1),
		dexTrade(at(20*time.Second), 2500, -1),
		dexTrade(at(59*time.Second), 2510, 1),
	}
	cex := []model.CexTrade{
		cexTrade(1, at(0), 2510, 1),
		cexTrade(2, at(10*time.Second), 2515, 1),
		cexTrade(3, at(30*time.Second), 2520, 1),
		cexTrade(4, at(40*time.Second), 2525, 1),
		cexTrade(5, at(50*time.Second), 2530, 1),
	}

	got := NewMinuteAggregator(0, dexCosts, cexCosts).Aggregate(dex, cex, TimeRange{})
	require.Len(t, got, 1)

	m := got[0]
	assert.Equal(t, noon, m.Minute)
	assert.InDelta(t, 2500, m.DexPrice, 1e-9)
	assert.InDelta(t, 2520, m.CexPrice, 1e-9)
	assert.Equal(t, 3, m.DexTradeCount)
	assert.Equal(t, 5, m.CexTradeCount)
	assert.Equal(t, model.RouteDexToCex, m.Direction)
	assert.InDelta(t, 2520*0.998-2500*1.005, m.Profit, 1e-9)
	assert.InDelta(t, (2520*0.998-2500*1.005)/(2500*1.005), m.ProfitRate, 1e-12)
	assert.InDelta(t, 20.0/2510.0*100, m.PriceDiffPercent, 1e-9)
}

func TestMinuteAggregator_CexToDex(t *testing.T) {
	dex := []model.DexTrade{dexTrade(at(0), 2560, 1)}
	cex := []model.CexTrade{cexTrade(1, at(0), 2500, 1)}

	got := NewMinuteAggregator(0, dexCosts, cexCosts).Aggregate(dex, cex, TimeRange{})
	require.Len(t, got, 1)
	assert.Equal(t, model.RouteCexToDex, got[0].Direction)
	assert.Greater(t, got[0].Profit, 0.0)
}

func TestMinuteAggregator_SkipsMinutesWithOneVenue(t *testing.T) {
	dex := []model.DexTrade{
		dexTrade(at(0), 2500, 1),
		dexTrade(at(time.Minute), 2500, 1),
		dexTrade(at(3*time.Minute), 2500, 1),
	}
	cex := []model.CexTrade{
		cexTrade(1, at(time.Minute+10*time.Second), 2560, 1),
		cexTrade(2, at(2*time.Minute), 2560, 1),
		cexTrade(3, at(3*time.Minute+59*time.Second), 2560, 1),
	}

	got := NewMinuteAggregator(0, dexCosts, cexCosts).Aggregate(dex, cex, TimeRange{})
	require.Len(t, got, 2)
	assert.Equal(t, noon.Add(time.Minute), got[0].Minute)
	assert.Equal(t, noon.Add(3*time.Minute), got[1].Minute)
}

func TestMinuteAggregator_ThresholdIsInclusive(t *testing.T) {
	dex := []model.DexTrade{dexTrade(at(0), 2500, 1)}
	cex := []model.CexTrade{cexTrade(1, at(0), 2520, 1)}

	rate := Profit(
		model.Leg{Price: 2500, FeeRate: dexCosts.FeeRate, Slippage: dexCosts.Slippage},
		model.Leg{Price: 2520, FeeRate: cexCosts.FeeRate, Slippage: cexCosts.Slippage},
		1,
	).ProfitRate

	assert.Len(t, NewMinuteAggregator(rate, dexCosts, cexCosts).Aggregate(dex, cex, TimeRange{}), 1)
	assert.Empty(t, NewMinuteAggregator(rate+1e-9, dexCosts, cexCosts).Aggregate(dex, cex, TimeRange{}))
}

func TestMinuteAggregator_NoProfitableDirection(t *testing.T) {
	dex := []model.DexTrade{dexTrade(at(0), 2500, 1)}
	cex := []model.CexTrade{cexTrade(1, at(0), 2501, 1)}

	assert.Empty(t, NewMinuteAggregator(0, dexCosts, cexCosts).Aggregate(dex, cex, TimeRange{}))
}

func TestMinuteAggregator_TieGoesToCexToDex(t *testing.T) {
	free := model.Costs{}
	dex := []model.DexTrade{dexTrade(at(0), 100, 1)}
	cex := []model.CexTrade{cexTrade(1, at(0), 100, 1)}

	got := NewMinuteAggregator(0, free, free).Aggregate(dex, cex, TimeRange{})
	require.Len(t, got, 1)
	assert.Equal(t, model.RouteCexToDex, got[0].Direction)
	assert.Zero(t, got[0].ProfitRate)
}

func TestMinuteAggregator_ExplicitRange(t *testing.T) {
	var dex []model.DexTrade
	var cex []model.CexTrade
	for i := range 4 {
		offset := time.Duration(i) * time.Minute
		dex = append(dex, dexTrade(at(offset+45*time.Second), 2500, 1))
		cex = append(cex, cexTrade(int64(i), at(offset+15*time.Second), 2560, 1))
	}

	rng := TimeRange{
		Start: noon.Add(time.Minute + 30*time.Second),
		End:   noon.Add(2*time.Minute + 30*time.Second),
	}
	got := NewMinuteAggregator(0, dexCosts, cexCosts).Aggregate(dex, cex, rng)
	require.Len(t, got, 2)
	assert.Equal(t, noon.Add(time.Minute), got[0].Minute)
	assert.Equal(t, noon.Add(2*time.Minute), got[1].Minute)

	open := TimeRange{Start: noon.Add(2 * time.Minute)}
	got = NewMinuteAggregator(0, dexCosts, cexCosts).Aggregate(dex, cex, open)
	require.Len(t, got, 2)
	assert.Equal(t, noon.Add(3*time.Minute), got[1].Minute)
}

func TestMinuteAggregator_EmptyOrInvalid(t *testing.T) {
	agg := NewMinuteAggregator(0, dexCosts, cexCosts)

	assert.Nil(t, agg.Aggregate(nil, []model.CexTrade{cexTrade(1, at(0), 2500, 1)}, TimeRange{}))
	assert.Nil(t, agg.Aggregate([]model.DexTrade{dexTrade(at(0), 2500, 1)}, nil, TimeRange{}))

	// a non-positive average never yields a row
	got := agg.Aggregate(
		[]model.DexTrade{dexTrade(at(0), 2500, 1)},
		[]model.CexTrade{cexTrade(1, at(0), 0, 1)},
		TimeRange{},
	)
	assert.Empty(t, got)
}

func TestMinuteAggregator_NonFiniteAverages(t *testing.T) {
	agg := NewMinuteAggregator(0, dexCosts, cexCosts)

	tests := []struct {
		name     string
		dex, cex float64
	}{
		{"infinite cex", 2500, math.Inf(1)},
		{"nan cex", 2500, math.NaN()},
		{"infinite dex", math.Inf(1), 2520},
		{"sum overflows", math.MaxFloat64, 2520},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dex := []model.DexTrade{dexTrade(at(0), tt.dex, 1), dexTrade(at(time.Second), tt.dex, 1)}
			cex := []model.CexTrade{cexTrade(1, at(0), tt.cex, 1)}

			got := agg.Aggregate(dex, cex, TimeRange{})
			assert.Empty(t, got)
			assert.NotPanics(t, func() { SummarizeMinutes(got) })
		})
	}
}

func TestFloorMinute(t *testing.T) {
	assert.Equal(t, int64(120), floorMinute(120))
	assert.Equal(t, int64(120), floorMinute(179))
	assert.Equal(t, int64(-60), floorMinute(-1))
	assert.Equal(t, int64(0), floorMinute(59))
}
