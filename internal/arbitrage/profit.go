package arbitrage

import (
	"math"

	"arbscan/internal/model"
)

// ProfitResult is the outcome of buying on one leg and selling on the other.
type ProfitResult struct {
	Buy        model.Leg
	Sell       model.Leg
	Volume     float64
	NetProfit  float64
	ProfitRate float64
}

// Profitable reports whether the trade makes money on a positive volume.
func (r ProfitResult) Profitable() bool {
	return r.NetProfit > 0 && r.Volume > 0
}

// Profit computes the fee and slippage adjusted result of buying volume units
// on buy and selling them on sell. Negative costs are treated as zero.
func Profit(buy, sell model.Leg, volume float64) ProfitResult {
	unitBuyCost := buy.Price * (1 + math.Max(0, buy.FeeRate) + math.Max(0, buy.Slippage))
	unitSellRevenue := sell.Price * (1 - math.Max(0, sell.FeeRate) - math.Max(0, sell.Slippage))

	cost := volume * unitBuyCost
	revenue := volume * unitSellRevenue
	net := revenue - cost

	rate := 0.0
	if cost > 0 {
		rate = net / cost
	}
	return ProfitResult{Buy: buy, Sell: sell, Volume: volume, NetProfit: net, ProfitRate: rate}
}

// Route labels the result by the venue of its buy leg.
func (r ProfitResult) Route() model.Route {
	if r.Buy.Venue == model.VenueDex {
		return model.RouteDexToCex
	}
	return model.RouteCexToDex
}

// RelativeSpread is |a-b| divided by the midpoint, or 0 when either price
// is not a positive finite number.
func RelativeSpread(dexPrice, cexPrice float64) float64 {
	if !validPrice(dexPrice) || !validPrice(cexPrice) {
		return 0
	}
	mid := 0.5 * (dexPrice + cexPrice)
	if !finite(mid) {
		return 0
	}
	return math.Abs(dexPrice-cexPrice) / mid
}

// EffectiveDirection decides which side the CEX trade plays against d. A DEX
// buy pairs with a pricier CEX trade treated as a sell, a DEX sell with a
// cheaper CEX trade treated as a buy. ok is false when no side is price-favorable.
func EffectiveDirection(d model.DexTrade, c model.CexTrade) (dir model.Direction, ok bool) {
	switch {
	case d.Direction() == model.Buy && c.Price > d.Price:
		return model.Sell, true
	case d.Direction() == model.Sell && c.Price < d.Price:
		return model.Buy, true
	default:
		return "", false
	}
}

// EvaluatePair runs the profit model for a DEX trade against a CEX trade playing
// cexDir. ok is false when the legs do not form a buy/sell pair or when a price,
// the volume or the result is not a finite number.
func EvaluatePair(d model.DexTrade, c model.CexTrade, cexDir model.Direction) (res ProfitResult, route model.Route, ok bool) {
	if !validPrice(d.Price) || !validPrice(c.Price) {
		return ProfitResult{}, "", false
	}
	if cexDir != d.Direction().Opposite() {
		return ProfitResult{}, "", false
	}
	volume := math.Max(0, math.Min(d.BaseVolume(), c.Quantity))
	if !(volume > 0) || !finite(volume) {
		return ProfitResult{}, "", false
	}

	if d.Direction() == model.Buy {
		res = Profit(d.Leg(), c.Leg(), volume)
	} else {
		res = Profit(c.Leg(), d.Leg(), volume)
	}
	if !finite(res.NetProfit) || !finite(res.ProfitRate) {
		return ProfitResult{}, "", false
	}
	return res, res.Route(), true
}

func validPrice(p float64) bool {
	return p > 0 && finite(p)
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
