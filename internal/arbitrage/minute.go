package arbitrage

import (
	"slices"
	"time"

	"arbscan/internal/model"
)

// TimeRange bounds the minute aggregation. A zero Start or End is derived
// from the data.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// MinuteAggregator compares per-minute average prices of both venues.
type MinuteAggregator struct {
	minProfitRate float64
	dex           model.Costs
	cex           model.Costs
}

// NewMinuteAggregator creates an aggregator emitting minutes whose best profit
// rate is at least minProfitRate.
func NewMinuteAggregator(minProfitRate float64, dex, cex model.Costs) *MinuteAggregator {
	return &MinuteAggregator{minProfitRate: minProfitRate, dex: dex, cex: cex}
}

type minuteBucket struct {
	sum   float64
	count int
}

func (b minuteBucket) average() float64 {
	return b.sum / float64(b.count)
}

// Aggregate returns one MinuteOpportunity per minute, in ascending order, where
// both venues traded and the better direction clears the profit rate floor.
func (a *MinuteAggregator) Aggregate(dex []model.DexTrade, cex []model.CexTrade, rng TimeRange) []model.MinuteOpportunity {
	if len(dex) == 0 || len(cex) == 0 {
		return nil
	}
	start, end := resolveRange(dex, cex, rng)

	dexBuckets := make(map[int64]minuteBucket)
	for _, t := range dex {
		addToBucket(dexBuckets, t.Timestamp, t.Price, start, end)
	}
	cexBuckets := make(map[int64]minuteBucket)
	for _, t := range cex {
		addToBucket(cexBuckets, t.Timestamp, t.Price, start, end)
	}

	minutes := make([]int64, 0, len(dexBuckets))
	for m := range dexBuckets {
		minutes = append(minutes, m)
	}
	for m := range cexBuckets {
		if _, ok := dexBuckets[m]; !ok {
			minutes = append(minutes, m)
		}
	}
	slices.Sort(minutes)

	var out []model.MinuteOpportunity
	for _, m := range minutes {
		d, okDex := dexBuckets[m]
		c, okCex := cexBuckets[m]
		if !okDex || !okCex {
			continue
		}

		dexPrice, cexPrice := d.average(), c.average()
		res, route, ok := a.best(dexPrice, cexPrice)
		if !ok {
			continue
		}

		out = append(out, model.MinuteOpportunity{
			Minute:           time.Unix(m, 0).UTC(),
			DexPrice:         dexPrice,
			CexPrice:         cexPrice,
			DexTradeCount:    d.count,
			CexTradeCount:    c.count,
			PriceDiffPercent: RelativeSpread(dexPrice, cexPrice) * 100,
			Profit:           res.NetProfit,
			ProfitRate:       res.ProfitRate,
			Direction:        route,
		})
	}
	return out
}

// best evaluates both directions for one unit of base asset and keeps the
// higher profit rate. On a tie cex->dex wins.
func (a *MinuteAggregator) best(dexPrice, cexPrice float64) (ProfitResult, model.Route, bool) {
	if !validPrice(dexPrice) || !validPrice(cexPrice) {
		return ProfitResult{}, "", false
	}
	dexLeg := model.Leg{Venue: model.VenueDex, Price: dexPrice, FeeRate: a.dex.FeeRate, Slippage: a.dex.Slippage}
	cexLeg := model.Leg{Venue: model.VenueCex, Price: cexPrice, FeeRate: a.cex.FeeRate, Slippage: a.cex.Slippage}

	var (
		best  ProfitResult
		found bool
	)
	for _, r := range []ProfitResult{Profit(cexLeg, dexLeg, 1), Profit(dexLeg, cexLeg, 1)} {
		if !finite(r.NetProfit) || !finite(r.ProfitRate) || r.ProfitRate < a.minProfitRate {
			continue
		}
		if !found || r.ProfitRate > best.ProfitRate {
			best, found = r, true
		}
	}
	if !found {
		return ProfitResult{}, "", false
	}
	return best, best.Route(), true
}

// resolveRange returns the inclusive minute bounds in unix seconds.
func resolveRange(dex []model.DexTrade, cex []model.CexTrade, rng TimeRange) (int64, int64) {
	lo, hi := dex[0].Timestamp, dex[0].Timestamp
	for _, t := range dex {
		lo, hi = min(lo, t.Timestamp), max(hi, t.Timestamp)
	}
	for _, t := range cex {
		lo, hi = min(lo, t.Timestamp), max(hi, t.Timestamp)
	}
	if !rng.Start.IsZero() {
		lo = rng.Start.Unix()
	}
	if !rng.End.IsZero() {
		hi = rng.End.Unix()
	}
	return floorMinute(lo), floorMinute(hi)
}

func addToBucket(buckets map[int64]minuteBucket, ts int64, price float64, start, end int64) {
	m := floorMinute(ts)
	if m < start || m > end {
		return
	}
	b := buckets[m]
	b.sum += price
	b.count++
	buckets[m] = b
}

func floorMinute(ts int64) int64 {
	return ts - ((ts%60)+60)%60
}
