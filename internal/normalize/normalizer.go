// Package normalize turns raw persisted trade rows into the in-memory
// representation used by the filter pipeline, the matcher and the minute aggregator.
package normalize

import (
	"strings"

	"arbscan/internal/model"
)

// Normalizer attaches the fixed venue costs to every trade it converts.
type Normalizer struct {
	dex model.Costs
	cex model.Costs
}

// NewNormalizer creates a Normalizer for the given DEX and CEX costs.
func NewNormalizer(dex, cex model.Costs) *Normalizer {
	return &Normalizer{dex: dex, cex: cex}
}

// DexTrades converts swap rows, preserving their order.
func (n *Normalizer) DexTrades(rows []model.DexSwapRow) []model.DexTrade {
	out := make([]model.DexTrade, 0, len(rows))
	for _, r := range rows {
		out = append(out, n.DexTrade(r))
	}
	return out
}

// DexTrade converts a single swap row. Addresses are lower-cased so that
// every later comparison is case-insensitive.
func (n *Normalizer) DexTrade(r model.DexSwapRow) model.DexTrade {
	return model.DexTrade{
		TxHash:           r.TxHash,
		LogIndex:         r.LogIndex,
		Timestamp:        r.TradedAt.Unix(),
		AmountA:          r.AmountA,
		AmountB:          r.AmountB,
		Price:            r.Price,
		BlockNumber:      r.BlockNumber,
		HasBlock:         r.HasBlock,
		TransactionIndex: r.TransactionIndex,
		Sender:           normalizeAddress(r.Sender),
		Recipient:        normalizeAddress(r.Recipient),
		GasUsed:          r.GasUsed,
		HasGasUsed:       r.HasGasUsed,
		SqrtPriceX96:     r.SqrtPriceX96,
		Tick:             r.Tick,
		FeeRate:          n.dex.FeeRate,
		Slippage:         n.dex.Slippage,
	}
}

// CexTrades converts exchange trade rows, preserving their order.
func (n *Normalizer) CexTrades(rows []model.CexTradeRow) []model.CexTrade {
	out := make([]model.CexTrade, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CexTrade{
			ID:        r.ID,
			Timestamp: r.TradedAt.Unix(),
			Price:     r.Price,
			Quantity:  r.Quantity,
			FeeRate:   n.cex.FeeRate,
			Slippage:  n.cex.Slippage,
		})
	}
	return out
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
