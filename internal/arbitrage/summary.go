package arbitrage

import (
	"github.com/shopspring/decimal"

	"arbscan/internal/model"
)

// Summary aggregates a matched-pair run.
//
// TotalProfit sums every pair independently. Since one swap or CEX trade can
// back several pairs, it over-counts whenever DistinctDexTrades or
// DistinctCexTrades is below Opportunities.
type Summary struct {
	Opportunities            int
	TotalProfit              decimal.Decimal
	AverageProfitRatePercent decimal.Decimal
	DistinctDexTrades        int
	DistinctCexTrades        int
}

// ReusesLegs reports whether at least one trade backs more than one pair.
func (s Summary) ReusesLegs() bool {
	return s.DistinctDexTrades < s.Opportunities || s.DistinctCexTrades < s.Opportunities
}

type dexKey struct {
	tx  string
	log int
}

// Summarize computes the statistics exposed alongside the opportunity table.
func Summarize(opps []model.Opportunity) Summary {
	s := Summary{
		Opportunities:            len(opps),
		TotalProfit:              decimal.Zero,
		AverageProfitRatePercent: decimal.Zero,
	}
	if len(opps) == 0 {
		return s
	}

	rates := decimal.Zero
	dexSeen := make(map[dexKey]struct{})
	cexSeen := make(map[int64]struct{})
	for _, o := range opps {
		s.TotalProfit = s.TotalProfit.Add(decimal.NewFromFloat(o.Profit))
		rates = rates.Add(decimal.NewFromFloat(o.ProfitRate))
		dexSeen[dexKey{o.DexTxHash, o.DexLogIndex}] = struct{}{}
		cexSeen[o.CexTradeID] = struct{}{}
	}
	s.AverageProfitRatePercent = rates.Div(decimal.NewFromInt(int64(len(opps)))).Mul(decimal.NewFromInt(100))
	s.DistinctDexTrades = len(dexSeen)
	s.DistinctCexTrades = len(cexSeen)
	return s
}

// MinuteSummary aggregates a minute run.
type MinuteSummary struct {
	Minutes                  int
	DexToCex                 int
	CexToDex                 int
	TotalUnitProfit          decimal.Decimal
	AverageProfitRatePercent decimal.Decimal
}

// SummarizeMinutes computes the statistics of a minute run.
func SummarizeMinutes(opps []model.MinuteOpportunity) MinuteSummary {
	s := MinuteSummary{
		Minutes:                  len(opps),
		TotalUnitProfit:          decimal.Zero,
		AverageProfitRatePercent: decimal.Zero,
	}
	if len(opps) == 0 {
		return s
	}

	rates := decimal.Zero
	for _, o := range opps {
		switch o.Direction {
		case model.RouteDexToCex:
			s.DexToCex++
		case model.RouteCexToDex:
			s.CexToDex++
		}
		s.TotalUnitProfit = s.TotalUnitProfit.Add(decimal.NewFromFloat(o.Profit))
		rates = rates.Add(decimal.NewFromFloat(o.ProfitRate))
	}
	s.AverageProfitRatePercent = rates.Div(decimal.NewFromInt(int64(len(opps)))).Mul(decimal.NewFromInt(100))
	return s
}
